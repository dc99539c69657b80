package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// EngineConfig configures the global middleware chain
type EngineConfig struct {
	Production     bool
	ServiceName    string
	TracingEnabled bool
	TrustedProxies []string
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	// RateLimitStore enables per-client rate limiting when set
	RateLimitStore cache.RateLimitStore
}

// NewEngine creates a gin engine with the middleware stack applied in order:
// request id, panic recovery, request logging, tracing, security headers,
// CORS, body size limit and rate limiting.
func NewEngine(cfg EngineConfig, log *zap.Logger) *gin.Engine {
	engine := gin.New()

	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
	})...)

	security := middleware.DefaultSecurityConfig()
	if cfg.Production {
		security = middleware.ProductionSecurityConfig()
	}
	engine.Use(middleware.SecureWithConfig(security))
	engine.Use(middleware.CORSWithConfig(cfg.CORS))

	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = middleware.DefaultMaxBodySize
	}
	engine.Use(middleware.BodyLimit(maxBody))

	if cfg.RateLimitStore != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimitStore, log))
	}

	return engine
}
