package limiterd

import (
	"math"
	"sync"
	"time"
)

// NewTokenBucket creates a Token Bucket limiter. The bucket starts full
// with capacity = maxRequests and refills at maxRequests/windowSeconds
// tokens per second, so bursts up to capacity pass immediately after a
// quiet period while the steady-state admission rate tends to the refill
// rate.
func NewTokenBucket(maxRequests, windowSeconds int64, start time.Time) (Limiter, error) {
	if err := validateParams(maxRequests, windowSeconds); err != nil {
		return nil, err
	}
	capacity := float64(maxRequests)
	return &tokenBucket{
		capacity:   capacity,
		refillRate: capacity / float64(windowSeconds),
		tokens:     capacity,
		lastRefill: start,
	}, nil
}

type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

func (b *tokenBucket) Algorithm() Algorithm { return TokenBucket }

func (b *tokenBucket) Allow(now time.Time) (bool, int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := elapsedSeconds(b.lastRefill, now)
	b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillRate)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, int64(math.Floor(b.tokens))
	}
	return false, 0
}
