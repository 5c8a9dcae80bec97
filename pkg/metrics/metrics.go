// Package metrics provides Prometheus instrumentation for a store:
// a store-level observer counting change events and a wrapper that
// instruments persistence hooks with counters and latency histograms.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Fxcilities/state-pool/pkg/store"
)

// Config configures the Prometheus instrumentation.
type Config struct {
	// Namespace is the metrics namespace (default: "statepool").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for storage operation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus instrumentation.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "statepool",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors for one store.
//
// Metrics collected:
//   - statepool_events_total: Counter of store-level change events by key
//   - statepool_storage_ops_total: Counter of persistence operations by op and status
//   - statepool_storage_op_duration_seconds: Histogram of persistence operation duration by op
//
// The key label assumes the bounded key sets typical of a state registry;
// hosts with unbounded keys should aggregate with their own observer.
type Metrics struct {
	eventsTotal       *prometheus.CounterVec
	storageOps        *prometheus.CounterVec
	storageOpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with the configured registry.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Total number of store-level state change events",
			ConstLabels: config.ConstLabels,
		}, []string{"key"}),

		storageOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "storage_ops_total",
			Help:        "Total number of persistence operations",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "status"}),

		storageOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "storage_op_duration_seconds",
			Help:        "Persistence operation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"op"}),
	}
}

// Observer returns a store-level observer that counts change events.
// Subscribe it like any other observer:
//
//	m := metrics.New()
//	s.Subscribe(m.Observer())
func (m *Metrics) Observer() store.Observer {
	return store.NewObserver(func(ev store.Event) {
		m.eventsTotal.WithLabelValues(ev.Key).Inc()
	})
}

// record times one storage operation and counts its outcome.
func (m *Metrics) record(op string, start time.Time, err error) {
	m.storageOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	m.storageOps.WithLabelValues(op, status).Inc()
}

// InstrumentStorage wraps the non-nil hooks of cfg with operation counters
// and duration histograms. The returned config preserves cfg's
// PersistEntireStore setting.
func (m *Metrics) InstrumentStorage(cfg store.Config) store.Config {
	out := store.Config{PersistEntireStore: cfg.PersistEntireStore}

	if cfg.SaveState != nil {
		save := cfg.SaveState
		out.SaveState = func(key string, value any, isInitialSet bool) error {
			start := time.Now()
			err := save(key, value, isInitialSet)
			m.record("save", start, err)
			return err
		}
	}
	if cfg.LoadState != nil {
		load := cfg.LoadState
		out.LoadState = func(key string) (any, bool, error) {
			start := time.Now()
			value, found, err := load(key)
			m.record("load", start, err)
			return value, found, err
		}
	}
	if cfg.RemoveState != nil {
		remove := cfg.RemoveState
		out.RemoveState = func(key string) error {
			start := time.Now()
			err := remove(key)
			m.record("remove", start, err)
			return err
		}
	}
	if cfg.ClearStorage != nil {
		clear := cfg.ClearStorage
		out.ClearStorage = func() error {
			start := time.Now()
			err := clear()
			m.record("clear", start, err)
			return err
		}
	}
	return out
}
