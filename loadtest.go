package limiterd

import (
	"context"
	"fmt"
	"time"
)

// Load test bounds.
const (
	MaxLoadRPS             = 100
	MaxLoadDurationSeconds = 60
)

// LoadTest describes one synthetic traffic run.
type LoadTest struct {
	APIKey            string `json:"api_key"`
	RequestsPerSecond int    `json:"requests_per_second"`
	DurationSeconds   int    `json:"duration_seconds"`
	Endpoint          string `json:"endpoint"`
}

// TestResult summarizes one synthetic traffic run.
type TestResult struct {
	TotalRequests     int     `json:"total_requests"`
	AllowedRequests   int64   `json:"allowed_requests"`
	BlockedRequests   int64   `json:"blocked_requests"`
	SuccessRate       float64 `json:"success_rate"`
	ActualDuration    float64 `json:"actual_duration"`
	RequestsPerSecond int     `json:"requests_per_second"`
}

// LoadDriver fires sequential synthetic requests through a Gateway,
// spacing them by 1/rps. Each request flows through the full decision
// path, so analytics and logs see the traffic exactly as they would see
// real clients.
type LoadDriver struct {
	gateway *Gateway
	sleep   func(context.Context, time.Duration) error
}

// LoadOption configures a LoadDriver.
type LoadOption func(*LoadDriver)

// WithSleep replaces the pacing function, for tests.
func WithSleep(fn func(context.Context, time.Duration) error) LoadOption {
	return func(ld *LoadDriver) { ld.sleep = fn }
}

// NewLoadDriver builds a driver over gw.
func NewLoadDriver(gw *Gateway, opts ...LoadOption) *LoadDriver {
	ld := &LoadDriver{
		gateway: gw,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Run issues rps*duration sequential decisions for lt.APIKey. A single
// driver loop paces submissions; decisions that hit the rate limit count
// as blocked, not as errors. Returns ErrUnknownKey if the key does not
// exist. The run stops early if ctx is cancelled.
func (ld *LoadDriver) Run(ctx context.Context, lt LoadTest) (*TestResult, error) {
	if lt.RequestsPerSecond < 1 || lt.RequestsPerSecond > MaxLoadRPS {
		return nil, fmt.Errorf("limiterd: requests per second must be between 1 and %d, got %d",
			MaxLoadRPS, lt.RequestsPerSecond)
	}
	if lt.DurationSeconds < 1 || lt.DurationSeconds > MaxLoadDurationSeconds {
		return nil, fmt.Errorf("limiterd: duration must be between 1 and %d seconds, got %d",
			MaxLoadDurationSeconds, lt.DurationSeconds)
	}
	endpoint := lt.Endpoint
	if endpoint == "" {
		endpoint = "/load-test"
	}

	total := lt.RequestsPerSecond * lt.DurationSeconds
	interval := time.Second / time.Duration(lt.RequestsPerSecond)

	started := time.Now()
	var allowed, blocked int64
	for i := 0; i < total; i++ {
		dec, err := ld.gateway.Decide(ctx, lt.APIKey, endpoint)
		if err != nil {
			return nil, err
		}
		if dec.Allowed {
			allowed++
		} else {
			blocked++
		}
		if i < total-1 {
			if err := ld.sleep(ctx, interval); err != nil {
				return nil, err
			}
		}
	}

	return &TestResult{
		TotalRequests:     total,
		AllowedRequests:   allowed,
		BlockedRequests:   blocked,
		SuccessRate:       successRate(allowed, int64(total)),
		ActualDuration:    time.Since(started).Seconds(),
		RequestsPerSecond: lt.RequestsPerSecond,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
