package pool

import (
	"log/slog"

	"github.com/randalmurphal/workerlocal/pkg/workerlocal/observability"
	"github.com/randalmurphal/workerlocal/pkg/workerlocal/registry"
)

// poolConfig holds Pool settings.
type poolConfig struct {
	name           string
	logger         *slog.Logger
	metricsEnabled bool
	tracingEnabled bool
	ids            *registry.Allocator
	failFast       bool
	queueDepth     int
}

// defaultPoolConfig returns the default pool configuration.
func defaultPoolConfig() poolConfig {
	return poolConfig{
		name: "pool",
		ids:  registry.Default(),
	}
}

// Option configures a Pool.
type Option func(*poolConfig)

// WithName sets the pool name used in logs, metrics, spans, and worker
// labels. Default: "pool"
func WithName(name string) Option {
	return func(c *poolConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger enables scope logging and sets the base logger handed to
// workers. Default: no scope logging; workers log to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *poolConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics. Default: false
func WithMetrics(enabled bool) Option {
	return func(c *poolConfig) {
		c.metricsEnabled = enabled
	}
}

// WithTracing enables OpenTelemetry scope spans. Default: false
func WithTracing(enabled bool) Option {
	return func(c *poolConfig) {
		c.tracingEnabled = enabled
	}
}

// WithRegistry sets the allocator worker IDs come from.
// Default: registry.Default()
//
// Stores shared between pools must only see IDs from one allocator,
// otherwise two workers could share a slot.
func WithRegistry(a *registry.Allocator) Option {
	return func(c *poolConfig) {
		if a != nil {
			c.ids = a
		}
	}
}

// WithFailFast cancels the scope on the first failed task.
// Default: false (every submitted task runs)
func WithFailFast(enabled bool) Option {
	return func(c *poolConfig) {
		c.failFast = enabled
	}
}

// WithQueueDepth sets how many submitted tasks may wait for a free worker
// before Execute blocks. Default: 0 (Execute hands tasks over directly)
func WithQueueDepth(n int) Option {
	return func(c *poolConfig) {
		if n >= 0 {
			c.queueDepth = n
		}
	}
}

func (c poolConfig) metrics() observability.MetricsRecorder {
	if c.metricsEnabled {
		return observability.NewMetricsRecorder()
	}
	return observability.NoopMetrics{}
}

func (c poolConfig) spans() observability.SpanManager {
	if c.tracingEnabled {
		return observability.NewSpanManager()
	}
	return observability.NoopSpanManager{}
}
