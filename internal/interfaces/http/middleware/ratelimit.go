package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RateLimitConfig configures the admission middleware
type RateLimitConfig struct {
	Store cache.RateLimitStore
	// KeyFunc picks the bucket for a request; defaults to the client IP
	KeyFunc func(*gin.Context) string
	Logger  *zap.Logger
}

// RateLimit returns a rate limiting middleware keyed by client IP
func RateLimit(store cache.RateLimitStore, logger *zap.Logger) gin.HandlerFunc {
	return RateLimitWithConfig(RateLimitConfig{Store: store, Logger: logger})
}

// RateLimitWithConfig returns a rate limiting middleware with custom configuration.
// When the store fails the request is let through and the failure is logged.
func RateLimitWithConfig(cfg RateLimitConfig) gin.HandlerFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return "ip:" + c.ClientIP() }
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		result, err := cfg.Store.Take(c.Request.Context(), keyFunc(c))
		if err != nil {
			log.Warn("rate limit store unavailable, admitting request",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(result.ResetAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests from this IP, please try again later.",
				c.GetString(RequestIDKey),
			))
			return
		}

		c.Next()
	}
}
