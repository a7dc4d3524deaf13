package workerlocal

import (
	"log/slog"

	"github.com/randalmurphal/workerlocal/pkg/workerlocal/observability"
	"github.com/randalmurphal/workerlocal/pkg/workerlocal/slots"
)

// storeConfig holds Store construction settings.
type storeConfig struct {
	name            string
	initialCapacity int
	logger          *slog.Logger
	metricsEnabled  bool
	tracingEnabled  bool
}

// defaultStoreConfig returns the default store configuration.
func defaultStoreConfig() storeConfig {
	return storeConfig{
		name:            "store",
		initialCapacity: slots.DefaultInitialCapacity,
	}
}

// Option configures a Store.
type Option func(*storeConfig)

// WithName sets the name used in logs, metrics, and spans.
// Default: "store"
func WithName(name string) Option {
	return func(c *storeConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithInitialCapacity sets how many worker slots the first bucket holds.
// Default: 32
//
// Later buckets are sized from this value, each twice the total capacity
// before it. Pick roughly the number of workers expected so the common case
// needs a single bucket.
func WithInitialCapacity(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.initialCapacity = n
		}
	}
}

// WithLogger sets the logger for growth and drain events.
// Default: no logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *storeConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics for the store.
// Default: false
//
// Metrics use the global meter provider; configure it before creating the
// store.
func WithMetrics(enabled bool) Option {
	return func(c *storeConfig) {
		c.metricsEnabled = enabled
	}
}

// WithTracing enables OpenTelemetry spans around drains.
// Default: false
func WithTracing(enabled bool) Option {
	return func(c *storeConfig) {
		c.tracingEnabled = enabled
	}
}

func (c storeConfig) metrics() observability.MetricsRecorder {
	if c.metricsEnabled {
		return observability.NewMetricsRecorder()
	}
	return observability.NoopMetrics{}
}

func (c storeConfig) spans() observability.SpanManager {
	if c.tracingEnabled {
		return observability.NewSpanManager()
	}
	return observability.NoopSpanManager{}
}
