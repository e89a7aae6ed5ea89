package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"privatize-quote/internal/quote"
	"privatize-quote/internal/service"
	"privatize-quote/internal/steps"
	"privatize-quote/internal/storage"
)

type errorBody struct {
	Error         string             `json:"error"`
	Step          string             `json:"step,omitempty"`
	Fields        []quote.FieldError `json:"fields,omitempty"`
	Field         string             `json:"field,omitempty"`
	Service       string             `json:"service,omitempty"`
	DistanceKm    float64            `json:"distance_km,omitempty"`
	MaxDistanceKm float64            `json:"max_distance_km,omitempty"`
}

// statusFor maps the engine's error taxonomy onto HTTP.
func statusFor(err error) (int, errorBody) {
	var (
		verr *quote.ValidationError
		mi   *quote.MalformedInputError
		ns   *quote.NotServedError
		su   *quote.ServiceUnavailableError
	)
	switch {
	case errors.As(err, &mi):
		return http.StatusBadRequest, errorBody{Error: mi.Error(), Field: mi.Field}
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorBody{Error: "validation failed", Step: verr.Step, Fields: verr.Fields}
	case errors.As(err, &ns):
		return http.StatusUnprocessableEntity, errorBody{
			Error:         ns.Error(),
			Field:         "postal_code",
			DistanceKm:    ns.DistanceKm,
			MaxDistanceKm: ns.MaxDistanceKm,
		}
	case errors.As(err, &su):
		return http.StatusServiceUnavailable, errorBody{Error: "service temporarily unavailable", Service: su.Service}
	case errors.Is(err, steps.ErrNoNextStep),
		errors.Is(err, steps.ErrNoPreviousStep),
		errors.Is(err, steps.ErrNotAtContact):
		return http.StatusConflict, errorBody{Error: err.Error()}
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, errorBody{Error: "session not found"}
	case errors.Is(err, storage.ErrQuoteNotFound):
		return http.StatusNotFound, errorBody{Error: "quote not found"}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal error"}
}

func (s *Server) fail(c *gin.Context, err error) {
	code, body := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", code),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(code, body)
}
