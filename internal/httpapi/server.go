// Package httpapi exposes the quote wizard and the admin quote tools over
// HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"privatize-quote/internal/quote"
	"privatize-quote/internal/service"
	"privatize-quote/internal/storage"
)

// Wizard is the session API of service.Service.
type Wizard interface {
	Start(ctx context.Context, variant string) (*service.View, error)
	Get(ctx context.Context, id string) (*service.View, error)
	Apply(ctx context.Context, id string, fields map[string]string) (*service.View, error)
	Next(ctx context.Context, id string) (*service.View, error)
	Back(ctx context.Context, id string) (*service.View, error)
	Goto(ctx context.Context, id, step string) (*service.View, error)
	SwitchVariant(ctx context.Context, id, variant string) (*service.View, error)
	Price(ctx context.Context, id string) (*quote.PriceBreakdown, error)
	Submit(ctx context.Context, id string) (*service.Receipt, error)
	Catalog() *quote.CatalogSnapshot
	RefreshCatalog(ctx context.Context) error
}

// QuoteAdmin is the quote store as seen by back office tools.
type QuoteAdmin interface {
	GetQuote(ctx context.Context, reference string) (*storage.QuoteRecord, error)
	UpdateQuoteStatus(ctx context.Context, reference, status string) error
	GetQuoteStatistics(ctx context.Context) (*storage.QuoteStatistics, error)
	ExportAllQuotesToExcel(ctx context.Context, dir string) (string, error)
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// Pinger reports whether a backing service answers.
type Pinger func(ctx context.Context) error

type Config struct {
	AllowedOrigins  []string
	AdminAPIKey     string
	SessionRate     int64
	SessionRateSpan time.Duration
	ReportsDir      string
}

type Server struct {
	cfg     Config
	wizard  Wizard
	quotes  QuoteAdmin
	limiter RateLimiter
	health  map[string]Pinger
	logger  *zap.Logger
}

type Option func(*Server)

// WithAdmin mounts the /admin routes. They stay unmounted without an API key.
func WithAdmin(quotes QuoteAdmin) Option {
	return func(s *Server) { s.quotes = quotes }
}

// WithRateLimit caps session creation per client IP.
func WithRateLimit(l RateLimiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithHealthCheck adds a dependency to /healthz.
func WithHealthCheck(name string, p Pinger) Option {
	return func(s *Server) { s.health[name] = p }
}

func New(cfg Config, wizard Wizard, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		wizard: wizard,
		health: map[string]Pinger{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the gin engine.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	origins := s.cfg.AllowedOrigins
	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", s.healthz)
	r.GET("/catalog", s.getCatalog)

	sessions := r.Group("/sessions")
	{
		sessions.POST("", s.rateLimited("sessions"), s.startSession)
		sessions.GET("/:id", s.getSession)
		sessions.POST("/:id/fields", s.applyFields)
		sessions.POST("/:id/next", s.step(s.wizard.Next))
		sessions.POST("/:id/back", s.step(s.wizard.Back))
		sessions.POST("/:id/goto", s.gotoStep)
		sessions.POST("/:id/variant", s.switchVariant)
		sessions.GET("/:id/price", s.price)
		sessions.POST("/:id/submit", s.submit)
	}

	if s.quotes != nil && s.cfg.AdminAPIKey != "" {
		admin := r.Group("/admin", s.requireAdmin())
		{
			admin.GET("/quotes/stats", s.quoteStats)
			admin.GET("/quotes/export", s.exportQuotes)
			admin.GET("/quotes/:ref", s.getQuote)
			admin.PATCH("/quotes/:ref/status", s.updateQuoteStatus)
			admin.POST("/catalog/refresh", s.refreshCatalog)
		}
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Warn("HTTP request", fields...)
			return
		}
		s.logger.Debug("HTTP request", fields...)
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	want := "Bearer " + s.cfg.AdminAPIKey
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != want {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		c.Next()
	}
}

// rateLimited lets the request through when the limiter itself fails.
func (s *Server) rateLimited(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || s.cfg.SessionRate <= 0 {
			c.Next()
			return
		}
		ok, err := s.limiter.CheckRateLimit(c.Request.Context(), scope+":"+c.ClientIP(), s.cfg.SessionRate, s.cfg.SessionRateSpan)
		if err != nil {
			s.logger.Warn("Rate limit check failed", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{Error: "too many requests"})
			return
		}
		c.Next()
	}
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{}
	code := http.StatusOK
	for name, ping := range s.health {
		if err := ping(ctx); err != nil {
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	c.JSON(code, gin.H{"status": status})
}
