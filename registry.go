package limiterd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/krishna-kudari/limiterd/store"
)

// ErrNotConfigured is returned by Registry.Acquire when no rate limit
// configuration exists for the key.
var ErrNotConfigured = errors.New("limiterd: no rate limit config for key")

// Default policy for keys that have no stored configuration. Unconfigured
// keys still rate limit rather than failing the decision path.
const (
	DefaultAlgorithm     = TokenBucket
	DefaultMaxRequests   = 100
	DefaultWindowSeconds = 60
)

// Registry owns the live limiter instance for each API key. Instances are
// created lazily from the most recent stored configuration and replaced
// atomically when that configuration changes; replacement discards the old
// instance's accumulated state.
//
// The map is guarded by a read-preferring lock: the read path (instance
// exists and still matches) is hot, creation and replacement are cold.
// Decisions themselves only take the instance's own mutex, never the
// registry's write lock.
type Registry struct {
	store store.ConfigStore
	clock Clock

	mu        sync.RWMutex
	instances map[string]*instance
}

// instance pairs a limiter with the parameters it was built from so a
// changed configuration can be detected on the next acquire.
type instance struct {
	limiter       Limiter
	algorithm     Algorithm
	maxRequests   int64
	windowSeconds int64
	synthesized   bool // built from the default policy, not a stored config
}

func (in *instance) matches(cfg *store.Config) bool {
	return in.algorithm == Algorithm(cfg.Algorithm) &&
		in.maxRequests == cfg.MaxRequests &&
		in.windowSeconds == cfg.WindowSeconds
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryClock overrides the registry's time source.
func WithRegistryClock(c Clock) RegistryOption {
	return func(r *Registry) { r.clock = c }
}

// NewRegistry creates a Registry backed by the given configuration store.
func NewRegistry(st store.ConfigStore, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:     st,
		clock:     SystemClock{},
		instances: make(map[string]*instance),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the live limiter for apiKey, creating or replacing it
// from the most recent stored configuration. Returns ErrNotConfigured when
// the key has no stored configuration, whether or not a synthesized
// default instance exists.
func (r *Registry) Acquire(ctx context.Context, apiKey string) (Limiter, error) {
	cfg, err := r.store.LatestConfigFor(ctx, apiKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		// Transient store failure: an already-live instance keeps
		// enforcing its embedded config.
		r.mu.RLock()
		in := r.instances[apiKey]
		r.mu.RUnlock()
		if in != nil && !in.synthesized {
			return in.limiter, nil
		}
		return nil, fmt.Errorf("limiterd: load config: %w", err)
	}

	r.mu.RLock()
	in := r.instances[apiKey]
	r.mu.RUnlock()
	if in != nil && !in.synthesized && in.matches(cfg) {
		return in.limiter, nil
	}

	return r.create(apiKey, cfg)
}

// AcquireDefault returns the synthesized default instance for apiKey,
// creating it if needed. Used by the gateway when Acquire reports
// ErrNotConfigured so the decision path stays total.
func (r *Registry) AcquireDefault(apiKey string) Limiter {
	r.mu.RLock()
	in := r.instances[apiKey]
	r.mu.RUnlock()
	if in != nil && in.synthesized {
		return in.limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if in := r.instances[apiKey]; in != nil && in.synthesized {
		return in.limiter
	}
	lim, _ := New(DefaultAlgorithm, DefaultMaxRequests, DefaultWindowSeconds, r.clock.Now())
	r.instances[apiKey] = &instance{
		limiter:       lim,
		algorithm:     DefaultAlgorithm,
		maxRequests:   DefaultMaxRequests,
		windowSeconds: DefaultWindowSeconds,
		synthesized:   true,
	}
	return lim
}

func (r *Registry) create(apiKey string, cfg *store.Config) (Limiter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check: another goroutine may have replaced it first.
	if in := r.instances[apiKey]; in != nil && !in.synthesized && in.matches(cfg) {
		return in.limiter, nil
	}

	lim, err := New(Algorithm(cfg.Algorithm), cfg.MaxRequests, cfg.WindowSeconds, r.clock.Now())
	if err != nil {
		return nil, err
	}
	r.instances[apiKey] = &instance{
		limiter:       lim,
		algorithm:     Algorithm(cfg.Algorithm),
		maxRequests:   cfg.MaxRequests,
		windowSeconds: cfg.WindowSeconds,
	}
	return lim, nil
}

// Invalidate drops the live instance for apiKey, if any. The next decision
// rebuilds it from the stored configuration.
func (r *Registry) Invalidate(apiKey string) {
	r.mu.Lock()
	delete(r.instances, apiKey)
	r.mu.Unlock()
}

// Reset discards all live instances.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.instances = make(map[string]*instance)
	r.mu.Unlock()
}

// Counts returns the number of live instances per algorithm. Every
// supported algorithm is present in the result, zero-valued if unused.
func (r *Registry) Counts() map[Algorithm]int {
	out := make(map[Algorithm]int, 4)
	for _, a := range Algorithms() {
		out[a] = 0
	}
	r.mu.RLock()
	for _, in := range r.instances {
		out[in.algorithm]++
	}
	r.mu.RUnlock()
	return out
}

// Len returns the total number of live instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}
