package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryRateLimitStore keeps fixed-window counters in process memory.
// Counters are per instance; use RedisRateLimitStore when several instances
// share a limit.
type InMemoryRateLimitStore struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

type window struct {
	count   int
	startAt time.Time
}

// NewInMemoryRateLimitStore creates a store and starts its cleanup loop
func NewInMemoryRateLimitStore(limit int, period time.Duration) *InMemoryRateLimitStore {
	s := &InMemoryRateLimitStore{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go s.cleanup()
	return s
}

// Take implements RateLimitStore
func (s *InMemoryRateLimitStore) Take(_ context.Context, key string) (RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.Sub(w.startAt) >= s.period {
		w = &window{startAt: now}
		s.windows[key] = w
	}
	w.count++

	return newResult(s.limit, w.count, s.period-now.Sub(w.startAt)), nil
}

// cleanup drops windows that ended more than one period ago
func (s *InMemoryRateLimitStore) cleanup() {
	ticker := time.NewTicker(s.period * 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *InMemoryRateLimitStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, w := range s.windows {
		if now.Sub(w.startAt) > s.period*2 {
			delete(s.windows, key)
		}
	}
}

// Size returns the number of tracked keys
func (s *InMemoryRateLimitStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Close stops the cleanup loop
func (s *InMemoryRateLimitStore) Close() error {
	s.once.Do(func() { close(s.stopCh) })
	return nil
}

var _ RateLimitStore = (*InMemoryRateLimitStore)(nil)
