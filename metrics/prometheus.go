// Package metrics provides Prometheus instrumentation for the decision
// gateway.
//
// Attach a Collector as the gateway's observer to record decision counts,
// latency, and shed log records:
//
//	collector := metrics.NewCollector()
//	gw := limiterd.NewGateway(st, reg, an, limiterd.WithObserver(collector))
//
// Decision counts are partitioned by algorithm name and carry a "decision"
// label (allowed / denied).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds Prometheus metric vectors for gateway instrumentation.
// It satisfies the gateway's DecisionObserver interface.
type Collector struct {
	decisions *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	logDrops  prometheus.Counter
}

type collectorConfig struct {
	namespace string
	subsystem string
	registry  prometheus.Registerer
	buckets   []float64
}

// CollectorOption configures a Collector.
type CollectorOption func(*collectorConfig)

// WithNamespace sets the Prometheus metric namespace (prefix).
func WithNamespace(ns string) CollectorOption {
	return func(c *collectorConfig) { c.namespace = ns }
}

// WithSubsystem sets the Prometheus metric subsystem.
func WithSubsystem(sub string) CollectorOption {
	return func(c *collectorConfig) { c.subsystem = sub }
}

// WithRegistry registers metrics with the given Registerer instead of
// prometheus.DefaultRegisterer.
func WithRegistry(r prometheus.Registerer) CollectorOption {
	return func(c *collectorConfig) { c.registry = r }
}

// WithBuckets sets custom histogram buckets for decision duration.
func WithBuckets(b []float64) CollectorOption {
	return func(c *collectorConfig) { c.buckets = b }
}

var defaultBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}

// NewCollector creates a Collector and registers its metrics.
//
// Metrics registered:
//   - {namespace}_decisions_total             counter   (algorithm, decision)
//   - {namespace}_decision_duration_seconds   histogram (algorithm)
//   - {namespace}_log_drops_total             counter
//
// Default namespace is "limiterd".
func NewCollector(opts ...CollectorOption) *Collector {
	cfg := &collectorConfig{
		namespace: "limiterd",
		registry:  prometheus.DefaultRegisterer,
		buckets:   defaultBuckets,
	}
	for _, o := range opts {
		o(cfg)
	}

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "decisions_total",
		Help:      "Total rate limit decisions partitioned by algorithm and outcome.",
	}, []string{"algorithm", "decision"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "decision_duration_seconds",
		Help:      "Latency of rate limit decisions in seconds.",
		Buckets:   cfg.buckets,
	}, []string{"algorithm"})

	logDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "log_drops_total",
		Help:      "Total decision records shed by the async log writer.",
	})

	cfg.registry.MustRegister(decisions, duration, logDrops)

	return &Collector{
		decisions: decisions,
		duration:  duration,
		logDrops:  logDrops,
	}
}

// Decision records one gateway decision and its latency.
func (c *Collector) Decision(algorithm string, allowed bool, took time.Duration) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	c.decisions.WithLabelValues(algorithm, decision).Inc()
	c.duration.WithLabelValues(algorithm).Observe(took.Seconds())
}

// LogDropped records one decision record shed under backpressure.
func (c *Collector) LogDropped() {
	c.logDrops.Inc()
}
