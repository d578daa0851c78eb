package limiterd

import (
	"math"
	"sync"
	"time"
)

// NewSlidingWindow creates a Sliding Window Counter limiter: the
// weighted-counter approximation with O(1) memory. Admission is judged
// against the estimate
//
//	previousCount * (windowSeconds - elapsed) / windowSeconds + currentCount
//
// which decays the previous window's count linearly as the current window
// fills. Over any interval of one window length admissions stay below
// 2*maxRequests, strictly tighter than Fixed Window's boundary burst.
func NewSlidingWindow(maxRequests, windowSeconds int64, start time.Time) (Limiter, error) {
	if err := validateParams(maxRequests, windowSeconds); err != nil {
		return nil, err
	}
	return &slidingWindow{
		maxRequests:   maxRequests,
		windowSeconds: windowSeconds,
		windowStart:   start,
	}, nil
}

type slidingWindow struct {
	mu            sync.Mutex
	maxRequests   int64
	windowSeconds int64
	windowStart   time.Time // current window
	currentCount  int64
	previousCount int64
}

func (w *slidingWindow) Algorithm() Algorithm { return SlidingWindow }

func (w *slidingWindow) Allow(now time.Time) (bool, int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	window := float64(w.windowSeconds)
	elapsed := elapsedSeconds(w.windowStart, now)

	if elapsed >= window {
		if elapsed >= 2*window {
			// Gap longer than a full previous window: nothing left to
			// weigh, restart cleanly at now.
			w.previousCount = 0
			w.currentCount = 0
			w.windowStart = now
			elapsed = 0
		} else {
			w.previousCount = w.currentCount
			w.currentCount = 0
			w.windowStart = w.windowStart.Add(time.Duration(w.windowSeconds) * time.Second)
			elapsed = elapsedSeconds(w.windowStart, now)
		}
	}

	weight := (window - elapsed) / window
	estimate := float64(w.previousCount)*weight + float64(w.currentCount)

	if estimate < float64(w.maxRequests) {
		w.currentCount++
		remaining := int64(math.Floor(float64(w.maxRequests) - estimate - 1))
		if remaining < 0 {
			remaining = 0
		}
		return true, remaining
	}
	return false, 0
}
