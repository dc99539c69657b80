package trade

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// OrderNumberGenerator produces human-readable order numbers
type OrderNumberGenerator interface {
	Next() string
}

// TimestampOrderNumberGenerator yields ORD-<unix-ms>-<0..999>.
// Numbers are not globally unique; the store enforces uniqueness and
// callers retry with a fresh number on collision.
type TimestampOrderNumberGenerator struct {
	now    func() time.Time
	suffix func() int
}

// NewTimestampOrderNumberGenerator creates a generator backed by the wall clock
func NewTimestampOrderNumberGenerator() *TimestampOrderNumberGenerator {
	return &TimestampOrderNumberGenerator{
		now:    time.Now,
		suffix: func() int { return rand.IntN(1000) },
	}
}

// Next returns a new order number
func (g *TimestampOrderNumberGenerator) Next() string {
	return fmt.Sprintf("ORD-%d-%d", g.now().UnixMilli(), g.suffix())
}
