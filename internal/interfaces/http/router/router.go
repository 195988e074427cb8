// Package router assembles the gin engine: the middleware stack, the
// versioned API group and the unversioned operational routes.
package router

import (
	"fmt"

	"github.com/erp/ledgerflow/internal/infrastructure/logger"
	"github.com/erp/ledgerflow/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
	root       []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar mounted under /api/<version>
func (r *Router) Register(registrar ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar...)
	return r
}

// RegisterRoot adds a RouteRegistrar mounted outside API versioning, such
// as the health check
func (r *Router) RegisterRoot(registrar ...RouteRegistrar) *Router {
	r.root = append(r.root, registrar...)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	for _, registrar := range r.root {
		registrar.RegisterRoutes(&r.engine.RouterGroup)
	}

	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// EngineConfig configures the middleware stack
type EngineConfig struct {
	Release        bool
	TrustedProxies []string
	MaxBodySize    int64
	Tracing        middleware.TracingConfig
	// Meter receives HTTP metrics; nil disables them
	Meter metric.Meter
	// Idempotency replays retried POST commands; a nil store disables it
	Idempotency middleware.IdempotencyConfig
}

// NewEngine creates a gin engine with the middleware stack applied in
// order: request ID, panic recovery, tracing, span error marking, metrics,
// access log, body limit and idempotency keys.
func NewEngine(cfg EngineConfig, log *zap.Logger) (*gin.Engine, error) {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
		}
	}

	metrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	engine.Use(logger.RequestID(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(cfg.Tracing))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(metrics)
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	engine.Use(middleware.Idempotency(cfg.Idempotency))

	return engine, nil
}
