package cache

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// RateLimitStoreFactory picks a rate-limit store based on configuration
type RateLimitStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// RateLimitStoreFactoryOption is a functional option for configuring the factory
type RateLimitStoreFactoryOption func(*RateLimitStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) RateLimitStoreFactoryOption {
	return func(f *RateLimitStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory counters
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) RateLimitStoreFactoryOption {
	return func(f *RateLimitStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewRateLimitStoreFactory creates a new factory
func NewRateLimitStoreFactory(cfg config.RedisConfig, opts ...RateLimitStoreFactoryOption) *RateLimitStoreFactory {
	f := &RateLimitStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a Redis store when Redis is enabled and reachable, and an
// in-memory store otherwise (unless fallback is disabled).
func (f *RateLimitStoreFactory) Create(ctx context.Context, limit int, period time.Duration) (RateLimitStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Using in-memory rate limit store (Redis disabled)")
		return NewInMemoryRateLimitStore(limit, period), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, err
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory rate limit store",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Error(err),
		)
		return NewInMemoryRateLimitStore(limit, period), nil
	}

	f.logger.Info("Using Redis rate limit store", zap.String("addr", f.redisConfig.Addr()))
	return NewRedisRateLimitStore(client, defaultRateLimitPrefix, limit, period), nil
}
