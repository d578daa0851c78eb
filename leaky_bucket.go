package limiterd

import (
	"sync"
	"time"
)

// NewLeakyBucket creates a Leaky Bucket limiter (queue variant). Admitted
// requests occupy a slot in the queue; slots drain at
// maxRequests/windowSeconds per second. A request is admitted only while
// the queue holds fewer than maxRequests entries.
func NewLeakyBucket(maxRequests, windowSeconds int64, start time.Time) (Limiter, error) {
	if err := validateParams(maxRequests, windowSeconds); err != nil {
		return nil, err
	}
	return &leakyBucket{
		capacity: int(maxRequests),
		leakRate: float64(maxRequests) / float64(windowSeconds),
		lastLeak: start,
	}, nil
}

type leakyBucket struct {
	mu       sync.Mutex
	capacity int
	leakRate float64 // slots drained per second
	queue    []time.Time
	lastLeak time.Time
}

func (b *leakyBucket) Algorithm() Algorithm { return LeakyBucket }

func (b *leakyBucket) Allow(now time.Time) (bool, int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := elapsedSeconds(b.lastLeak, now)
	toLeak := int(elapsed * b.leakRate)
	if n := min(toLeak, len(b.queue)); n > 0 {
		// Copy down instead of reslicing so the backing array doesn't
		// creep forward across many leak cycles.
		b.queue = append(b.queue[:0], b.queue[n:]...)
		// lastLeak only advances when something actually drained;
		// otherwise fractional progress toward the next leak is kept.
		b.lastLeak = now
	}

	if len(b.queue) < b.capacity {
		b.queue = append(b.queue, now)
		return true, int64(b.capacity - len(b.queue))
	}
	return false, 0
}
