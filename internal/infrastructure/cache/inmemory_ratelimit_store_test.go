package cache

import (
	"context"
	"testing"
	"time"

	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInMemoryRateLimitStore_Take(t *testing.T) {
	store := NewInMemoryRateLimitStore(2, time.Minute)
	defer store.Close()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("allows requests up to the limit", func(t *testing.T) {
		first, err := store.Take(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, first.Allowed)
		assert.Equal(t, 1, first.Remaining)

		second, err := store.Take(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, second.Allowed)
		assert.Equal(t, 0, second.Remaining)
	})

	t.Run("rejects once the window is spent", func(t *testing.T) {
		res, err := store.Take(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
		assert.Equal(t, time.Minute, res.ResetAfter)
	})

	t.Run("keys are independent", func(t *testing.T) {
		res, err := store.Take(ctx, "5.6.7.8")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("new window resets the count", func(t *testing.T) {
		now = now.Add(time.Minute)
		res, err := store.Take(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1, res.Remaining)
	})
}

func TestInMemoryRateLimitStore_EvictExpired(t *testing.T) {
	store := NewInMemoryRateLimitStore(5, time.Second)
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }

	_, _ = store.Take(context.Background(), "a")
	_, _ = store.Take(context.Background(), "b")
	assert.Equal(t, 2, store.Size())

	now = now.Add(3 * time.Second)
	store.evictExpired()
	assert.Equal(t, 0, store.Size())
}

func TestInMemoryRateLimitStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryRateLimitStore(1, time.Second)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestRateLimitStoreFactory(t *testing.T) {
	t.Run("redis disabled uses memory", func(t *testing.T) {
		f := NewRateLimitStoreFactory(config.RedisConfig{Enabled: false})
		store, err := f.Create(context.Background(), 10, time.Minute)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryRateLimitStore{}, store)
	})

	t.Run("unreachable redis falls back with a warning", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		f := NewRateLimitStoreFactory(
			config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1},
			WithLogger(zap.New(core)),
		)
		store, err := f.Create(context.Background(), 10, time.Minute)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryRateLimitStore{}, store)
		assert.Equal(t, 1, logs.FilterMessage("Redis unavailable, falling back to in-memory rate limit store").Len())
	})

	t.Run("fallback disabled returns the error", func(t *testing.T) {
		f := NewRateLimitStoreFactory(
			config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1},
			WithInMemoryFallback(false),
		)
		_, err := f.Create(context.Background(), 10, time.Minute)
		assert.Error(t, err)
	})
}
