package limiterd

import (
	"sync"
	"time"
)

// NewFixedWindow creates a Fixed Window limiter: a counter that resets
// whenever windowSeconds have passed since the window opened.
//
// Known trade-off of the algorithm: up to 2*maxRequests admissions can land
// inside a span that straddles a window boundary.
func NewFixedWindow(maxRequests, windowSeconds int64, start time.Time) (Limiter, error) {
	if err := validateParams(maxRequests, windowSeconds); err != nil {
		return nil, err
	}
	return &fixedWindow{
		maxRequests:   maxRequests,
		windowSeconds: float64(windowSeconds),
		windowStart:   start,
	}, nil
}

type fixedWindow struct {
	mu            sync.Mutex
	maxRequests   int64
	windowSeconds float64
	windowStart   time.Time
	count         int64
}

func (w *fixedWindow) Algorithm() Algorithm { return FixedWindow }

func (w *fixedWindow) Allow(now time.Time) (bool, int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if elapsedSeconds(w.windowStart, now) >= w.windowSeconds {
		w.windowStart = now
		w.count = 0
	}

	if w.count < w.maxRequests {
		w.count++
		return true, w.maxRequests - w.count
	}
	return false, 0
}
