package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"privatize-quote/internal/quote"
	"privatize-quote/internal/service"
	"privatize-quote/internal/storage"
)

type startRequest struct {
	Variant string `json:"service_variant" form:"service_variant"`
}

type gotoRequest struct {
	Step string `json:"step" form:"step"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) startSession(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	v, err := s.wizard.Start(c.Request.Context(), req.Variant)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (s *Server) getSession(c *gin.Context) {
	v, err := s.wizard.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// applyFields accepts a flat JSON object or a urlencoded form. Repeated form
// keys keep their last value.
func (s *Server) applyFields(c *gin.Context) {
	fields, err := readFields(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	v, err := s.wizard.Apply(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func readFields(c *gin.Context) (map[string]string, error) {
	if c.ContentType() == gin.MIMEJSON {
		var raw map[string]json.RawMessage
		if err := c.ShouldBindJSON(&raw); err != nil {
			return nil, err
		}
		fields := make(map[string]string, len(raw))
		for k, v := range raw {
			var str string
			if err := json.Unmarshal(v, &str); err == nil {
				fields[k] = str
				continue
			}
			// numbers and booleans are taken verbatim
			fields[k] = strings.TrimSpace(string(v))
		}
		return fields, nil
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(c.Request.PostForm))
	for k, vs := range c.Request.PostForm {
		if len(vs) > 0 {
			fields[k] = vs[len(vs)-1]
		}
	}
	return fields, nil
}

func (s *Server) step(move func(ctx context.Context, id string) (*service.View, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := move(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

func (s *Server) gotoStep(c *gin.Context) {
	var req gotoRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	v, err := s.wizard.Goto(c.Request.Context(), c.Param("id"), req.Step)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) switchVariant(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	v, err := s.wizard.SwitchVariant(c.Request.Context(), c.Param("id"), req.Variant)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) price(c *gin.Context) {
	b, err := s.wizard.Price(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) submit(c *gin.Context) {
	r, err := s.wizard.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (s *Server) getCatalog(c *gin.Context) {
	data := s.wizard.Catalog().Data()
	active := data.Products[:0:0]
	for _, p := range data.Products {
		if p.Active {
			active = append(active, p)
		}
	}
	data.Products = active
	c.JSON(http.StatusOK, data)
}

func (s *Server) getQuote(c *gin.Context) {
	rec, err := s.quotes.GetQuote(c.Request.Context(), strings.ToUpper(c.Param("ref")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) updateQuoteStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "status is required"})
		return
	}
	status := strings.ToLower(req.Status)
	if !storage.ValidStatus(status) {
		s.fail(c, quote.NewValidationError("status", "unknown status "+req.Status))
		return
	}

	ref := strings.ToUpper(c.Param("ref"))
	if err := s.quotes.UpdateQuoteStatus(c.Request.Context(), ref, status); err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("Quote status updated",
		zap.String("reference", ref),
		zap.String("status", status))
	c.JSON(http.StatusOK, gin.H{"reference": ref, "status": status})
}

func (s *Server) quoteStats(c *gin.Context) {
	stats, err := s.quotes.GetQuoteStatistics(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) exportQuotes(c *gin.Context) {
	path, err := s.quotes.ExportAllQuotesToExcel(c.Request.Context(), s.cfg.ReportsDir)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

func (s *Server) refreshCatalog(c *gin.Context) {
	if err := s.wizard.RefreshCatalog(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": len(s.wizard.Catalog().Data().Products)})
}
