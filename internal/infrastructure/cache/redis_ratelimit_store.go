package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/infrastructure/config"
)

const defaultRateLimitPrefix = "ratelimit:"

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisRateLimitStore keeps fixed-window counters in Redis so that every
// instance behind a load balancer shares the same budget per key.
type RedisRateLimitStore struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	period    time.Duration
}

// NewRedisRateLimitStore creates a store on an existing client
func NewRedisRateLimitStore(client *redis.Client, keyPrefix string, limit int, period time.Duration) *RedisRateLimitStore {
	if keyPrefix == "" {
		keyPrefix = defaultRateLimitPrefix
	}
	return &RedisRateLimitStore{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		period:    period,
	}
}

// Take implements RateLimitStore. INCR and the first-hit EXPIRE run in one
// MULTI block so a counter can never be left without a TTL.
func (s *RedisRateLimitStore) Take(ctx context.Context, key string) (RateLimitResult, error) {
	redisKey := s.keyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, s.period)
		ttl = pipe.PTTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("rate limit counter: %w", err)
	}

	resetAfter := ttl.Val()
	if resetAfter < 0 {
		resetAfter = s.period
	}
	return newResult(s.limit, int(incr.Val()), resetAfter), nil
}

// Close closes the Redis client
func (s *RedisRateLimitStore) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client
func (s *RedisRateLimitStore) Client() *redis.Client {
	return s.client
}

var _ RateLimitStore = (*RedisRateLimitStore)(nil)
