package limiterd

import (
	"fmt"
	"time"
)

// Algorithm identifies one of the four rate limiting algorithms.
// The values are the wire format used in configurations, logs, and
// analytics.
type Algorithm string

const (
	TokenBucket   Algorithm = "token_bucket"
	LeakyBucket   Algorithm = "leaky_bucket"
	FixedWindow   Algorithm = "fixed_window"
	SlidingWindow Algorithm = "sliding_window"
)

// Algorithms returns all supported algorithm tags.
func Algorithms() []Algorithm {
	return []Algorithm{TokenBucket, LeakyBucket, FixedWindow, SlidingWindow}
}

// Valid reports whether a is a supported algorithm tag.
func (a Algorithm) Valid() bool {
	switch a {
	case TokenBucket, LeakyBucket, FixedWindow, SlidingWindow:
		return true
	}
	return false
}

// Limiter is the uniform decision operation over the four algorithms.
//
// Allow decides one request at the given instant and returns the decision
// plus the instance's best estimate of further admissions possible without
// blocking. remaining is informational and always >= 0.
//
// Implementations serialize Allow with an internal mutex, so for a single
// instance decisions are totally ordered: the result of call i+1 reflects
// all effects of call i. now values from a monotonic clock never move the
// state backwards (negative elapsed time is clamped to zero).
type Limiter interface {
	Allow(now time.Time) (allowed bool, remaining int64)
	Algorithm() Algorithm
}

// New creates a limiter instance for the given algorithm.
// maxRequests bounds admissions over windowSeconds; both must be positive.
// start seeds the instance's time origin (its refill/window anchor).
func New(algorithm Algorithm, maxRequests, windowSeconds int64, start time.Time) (Limiter, error) {
	switch algorithm {
	case TokenBucket:
		return NewTokenBucket(maxRequests, windowSeconds, start)
	case LeakyBucket:
		return NewLeakyBucket(maxRequests, windowSeconds, start)
	case FixedWindow:
		return NewFixedWindow(maxRequests, windowSeconds, start)
	case SlidingWindow:
		return NewSlidingWindow(maxRequests, windowSeconds, start)
	default:
		return nil, fmt.Errorf("limiterd: unknown algorithm %q", algorithm)
	}
}

func validateParams(maxRequests, windowSeconds int64) error {
	if maxRequests <= 0 || windowSeconds <= 0 {
		return fmt.Errorf("limiterd: maxRequests and windowSeconds must be positive")
	}
	return nil
}

// elapsedSeconds returns the non-negative seconds between since and now.
func elapsedSeconds(since, now time.Time) float64 {
	d := now.Sub(since).Seconds()
	if d < 0 {
		return 0
	}
	return d
}
