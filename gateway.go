package limiterd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krishna-kudari/limiterd/store"
)

// ErrUnknownKey is returned by Decide when the API key does not exist.
// Unknown-key requests are never recorded in analytics.
var ErrUnknownKey = errors.New("limiterd: unknown api key")

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed        bool
	Algorithm      Algorithm
	RemainingQuota int64
	Timestamp      time.Time
}

// DecisionObserver receives telemetry about gateway activity. Implemented
// by metrics.Collector; a nil observer disables instrumentation.
type DecisionObserver interface {
	// Decision records one decision and the time the check took.
	Decision(algorithm string, allowed bool, took time.Duration)
	// LogDropped records one decision record shed by the log writer.
	LogDropped()
}

// Gateway is the front door of the engine. Decide resolves the API key,
// acquires the key's limiter instance, runs the algorithm step under that
// instance's mutex only, then records telemetry: synchronously into
// Analytics, asynchronously into the persistent log.
type Gateway struct {
	store     store.ConfigStore
	registry  *Registry
	analytics *Analytics
	clock     Clock
	logger    *zap.Logger
	writer    *LogWriter
	observer  DecisionObserver
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithClock overrides the gateway's time source.
func WithClock(c Clock) GatewayOption {
	return func(g *Gateway) { g.clock = c }
}

// WithLogger sets the gateway's logger (default: no-op).
func WithLogger(l *zap.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// WithLogWriter attaches an asynchronous persistence writer for decision
// records. Without one, decisions are only recorded in analytics.
func WithLogWriter(w *LogWriter) GatewayOption {
	return func(g *Gateway) { g.writer = w }
}

// WithObserver attaches a telemetry observer.
func WithObserver(o DecisionObserver) GatewayOption {
	return func(g *Gateway) { g.observer = o }
}

// NewGateway wires a Gateway over its collaborators.
func NewGateway(st store.ConfigStore, reg *Registry, an *Analytics, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:     st,
		registry:  reg,
		analytics: an,
		clock:     SystemClock{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Analytics returns the gateway's aggregator.
func (g *Gateway) Analytics() *Analytics { return g.analytics }

// Registry returns the gateway's instance registry.
func (g *Gateway) Registry() *Registry { return g.registry }

// Decide runs one rate limit check for apiKey against endpoint.
//
// Returns ErrUnknownKey if the key does not exist. Keys without a stored
// configuration are limited by the default policy (token bucket,
// 100 requests per 60 seconds) so the decision path stays total. A blocked
// request is a successful decision, not an error.
func (g *Gateway) Decide(ctx context.Context, apiKey, endpoint string) (*Decision, error) {
	if _, err := g.store.FindAPIKey(ctx, apiKey); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownKey
		}
		return nil, fmt.Errorf("limiterd: api key lookup: %w", err)
	}

	lim, err := g.registry.Acquire(ctx, apiKey)
	if errors.Is(err, ErrNotConfigured) {
		lim = g.registry.AcquireDefault(apiKey)
	} else if err != nil {
		return nil, err
	}

	started := time.Now()
	now := g.clock.Now()
	allowed, remaining := lim.Allow(now)

	entry := &store.RequestLog{
		ID:             uuid.NewString(),
		APIKey:         apiKey,
		Endpoint:       endpoint,
		Algorithm:      string(lim.Algorithm()),
		Allowed:        allowed,
		Timestamp:      now,
		RemainingQuota: remaining,
	}
	g.analytics.Record(entry)
	if g.writer != nil {
		g.writer.Enqueue(entry)
	}
	if g.observer != nil {
		g.observer.Decision(entry.Algorithm, allowed, time.Since(started))
	}

	return &Decision{
		Allowed:        allowed,
		Algorithm:      lim.Algorithm(),
		RemainingQuota: remaining,
		Timestamp:      now,
	}, nil
}

// ResetStats zeroes the analytics counters, discards all live limiter
// instances, and deletes persisted decision records. Kept configurations
// and API keys are untouched.
func (g *Gateway) ResetStats(ctx context.Context) error {
	g.analytics.Reset()
	g.registry.Reset()
	if err := g.store.DeleteAllLogs(ctx); err != nil {
		return fmt.Errorf("limiterd: delete logs: %w", err)
	}
	g.logger.Info("statistics and rate limiters reset")
	return nil
}
