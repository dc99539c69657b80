// Package cache holds the shared counters used for request admission.
package cache

import (
	"context"
	"time"
)

// RateLimitResult is the outcome of taking one request from a window
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAfter is the time until the current window ends
	ResetAfter time.Duration
}

// RateLimitStore counts requests per key in fixed windows
type RateLimitStore interface {
	// Take records one request for key and reports whether it is within the limit
	Take(ctx context.Context, key string) (RateLimitResult, error)
	// Close releases resources held by the store
	Close() error
}

func newResult(limit, count int, resetAfter time.Duration) RateLimitResult {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:    count <= limit,
		Limit:      limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
	}
}
