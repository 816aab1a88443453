package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/vet-portal/internal/middleware"
	"github.com/jwalitptl/vet-portal/pkg/logger"
	"github.com/jwalitptl/vet-portal/pkg/metrics"
)

// Handler registers routes that need a current user.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// PublicHandler also serves visitors without a token.
type PublicHandler interface {
	Handler
	RegisterPublicRoutes(*gin.RouterGroup)
}

// HealthHandler is mounted outside the API prefix.
type HealthHandler interface {
	RegisterRoutes(gin.IRoutes)
}

type RouterConfig struct {
	Mode             string
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	MaxBodySize      int64
	MetricsPath      string
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	health   HealthHandler
	metrics  gin.HandlerFunc
	handlers []Handler
	config   RouterConfig
}

// NewRouter builds the engine with the core middleware. metricsHandler may be nil.
func NewRouter(
	config RouterConfig,
	log *logger.Logger,
	m *metrics.Metrics,
	auth *middleware.AuthMiddleware,
	health HealthHandler,
	metricsHandler gin.HandlerFunc,
	handlers ...Handler,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if log == nil {
		log = logger.Nop()
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
	)
	if m != nil {
		engine.Use(middleware.Metrics(m))
	}
	engine.Use(middleware.SizeLimit(config.MaxBodySize))
	if config.RateLimitEnabled {
		engine.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		}).RateLimit())
	}

	return &Router{
		engine:   engine,
		auth:     auth,
		health:   health,
		metrics:  metricsHandler,
		handlers: handlers,
		config:   config,
	}
}

func (r *Router) Setup() {
	if r.health != nil {
		r.health.RegisterRoutes(r.engine)
	}
	if r.metrics != nil {
		path := r.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, r.metrics)
	}

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	for _, h := range r.handlers {
		if p, ok := h.(PublicHandler); ok {
			p.RegisterPublicRoutes(api)
		}
	}

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	for _, h := range r.handlers {
		h.RegisterRoutes(protected)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
