package limiterd

import (
	"math"
	"sync"

	"github.com/krishna-kudari/limiterd/store"
)

// DefaultRingSize is the default capacity of the recent-decisions ring.
const DefaultRingSize = 256

// AlgorithmStats is the per-algorithm slice of the analytics summary.
type AlgorithmStats struct {
	Total       int64   `json:"total"`
	Allowed     int64   `json:"allowed"`
	Blocked     int64   `json:"blocked"`
	SuccessRate float64 `json:"success_rate"`
}

// Summary is the aggregate view served to the dashboard.
type Summary struct {
	TotalRequests   int64                     `json:"total_requests"`
	AllowedRequests int64                     `json:"allowed_requests"`
	BlockedRequests int64                     `json:"blocked_requests"`
	SuccessRate     float64                   `json:"success_rate"`
	AlgorithmStats  map[string]AlgorithmStats `json:"algorithm_stats"`
}

// Analytics aggregates decision counters and keeps a bounded FIFO ring of
// the most recent decision records. Record is synchronous and cheap so the
// dashboard always reflects the latest decision; callers invoke it after
// releasing the limiter instance's mutex.
type Analytics struct {
	mu      sync.Mutex
	total   int64
	allowed int64
	blocked int64
	perAlgo map[Algorithm]*algoCounters
	perKey  map[string]*keyCounters

	ring []store.RequestLog
	head int // index of the oldest entry once the ring is full
	size int
}

type algoCounters struct {
	total   int64
	allowed int64
	blocked int64
}

// keyCounters is the per-tenant slice of the counters, kept alongside the
// global ones so the dashboard can drill down by API key.
type keyCounters struct {
	total   int64
	allowed int64
	blocked int64
	perAlgo map[Algorithm]*algoCounters
}

// NewAnalytics creates an aggregator whose recent-log ring holds ringSize
// entries; sizes below DefaultRingSize are raised to it.
func NewAnalytics(ringSize int) *Analytics {
	if ringSize < DefaultRingSize {
		ringSize = DefaultRingSize
	}
	return &Analytics{
		perAlgo: make(map[Algorithm]*algoCounters),
		perKey:  make(map[string]*keyCounters),
		ring:    make([]store.RequestLog, ringSize),
	}
}

// Record folds one decision into the counters and the ring, evicting the
// oldest entry when the ring is full.
func (a *Analytics) Record(entry *store.RequestLog) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	algo := Algorithm(entry.Algorithm)
	c := a.perAlgo[algo]
	if c == nil {
		c = &algoCounters{}
		a.perAlgo[algo] = c
	}
	c.total++

	k := a.perKey[entry.APIKey]
	if k == nil {
		k = &keyCounters{perAlgo: make(map[Algorithm]*algoCounters)}
		a.perKey[entry.APIKey] = k
	}
	k.total++
	ka := k.perAlgo[algo]
	if ka == nil {
		ka = &algoCounters{}
		k.perAlgo[algo] = ka
	}
	ka.total++

	if entry.Allowed {
		a.allowed++
		c.allowed++
		k.allowed++
		ka.allowed++
	} else {
		a.blocked++
		c.blocked++
		k.blocked++
		ka.blocked++
	}

	if a.size < len(a.ring) {
		a.ring[(a.head+a.size)%len(a.ring)] = *entry
		a.size++
	} else {
		a.ring[a.head] = *entry
		a.head = (a.head + 1) % len(a.ring)
	}
}

// Summary returns the current counters. Success rates are percentages
// rounded to two decimal places; zero totals yield a zero rate.
func (a *Analytics) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{
		TotalRequests:   a.total,
		AllowedRequests: a.allowed,
		BlockedRequests: a.blocked,
		SuccessRate:     successRate(a.allowed, a.total),
		AlgorithmStats:  make(map[string]AlgorithmStats, len(a.perAlgo)),
	}
	for algo, c := range a.perAlgo {
		s.AlgorithmStats[string(algo)] = AlgorithmStats{
			Total:       c.total,
			Allowed:     c.allowed,
			Blocked:     c.blocked,
			SuccessRate: successRate(c.allowed, c.total),
		}
	}
	return s
}

// SummaryFor returns the counters for a single API key. An unseen key
// yields a zero summary with an empty algorithm map.
func (a *Analytics) SummaryFor(apiKey string) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := a.perKey[apiKey]
	if k == nil {
		return Summary{AlgorithmStats: make(map[string]AlgorithmStats)}
	}
	s := Summary{
		TotalRequests:   k.total,
		AllowedRequests: k.allowed,
		BlockedRequests: k.blocked,
		SuccessRate:     successRate(k.allowed, k.total),
		AlgorithmStats:  make(map[string]AlgorithmStats, len(k.perAlgo)),
	}
	for algo, c := range k.perAlgo {
		s.AlgorithmStats[string(algo)] = AlgorithmStats{
			Total:       c.total,
			Allowed:     c.allowed,
			Blocked:     c.blocked,
			SuccessRate: successRate(c.allowed, c.total),
		}
	}
	return s
}

// Recent returns up to limit decision records, newest first. Non-positive
// limits yield nil.
func (a *Analytics) Recent(limit int) []store.RequestLog {
	return a.RecentFor("", limit)
}

// RecentFor is Recent restricted to one API key; an empty apiKey matches
// every record.
func (a *Analytics) RecentFor(apiKey string, limit int) []store.RequestLog {
	if limit <= 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]store.RequestLog, 0, min(limit, a.size))
	for i := 0; i < a.size && len(out) < limit; i++ {
		idx := (a.head + a.size - 1 - i + len(a.ring)) % len(a.ring)
		if apiKey != "" && a.ring[idx].APIKey != apiKey {
			continue
		}
		out = append(out, a.ring[idx])
	}
	return out
}

// Reset zeroes all counters and clears the ring.
func (a *Analytics) Reset() {
	a.mu.Lock()
	a.total, a.allowed, a.blocked = 0, 0, 0
	a.perAlgo = make(map[Algorithm]*algoCounters)
	a.perKey = make(map[string]*keyCounters)
	a.head, a.size = 0, 0
	a.mu.Unlock()
}

func successRate(allowed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(allowed)/float64(total)*100*100) / 100
}
