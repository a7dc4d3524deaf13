package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records store and pool metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordSlotInit records a worker initializing its slot in a store.
	RecordSlotInit(ctx context.Context, store string)

	// RecordGrowth records a bucket being published in a store's slot table.
	RecordGrowth(ctx context.Context, store string, bucket, capacity int)

	// RecordDrain records a consuming drain and how many values it produced.
	RecordDrain(ctx context.Context, store string, values int, duration time.Duration)

	// RecordTask records one pool task with its duration and error status.
	RecordTask(ctx context.Context, pool string, duration time.Duration, err error)

	// RecordScope records a pool scope completion.
	RecordScope(ctx context.Context, pool string, success bool, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	slotInits     metric.Int64Counter
	bucketGrowths metric.Int64Counter
	bucketSize    metric.Int64Histogram
	drainValues   metric.Int64Histogram
	drainLatency  metric.Float64Histogram
	tasks         metric.Int64Counter
	taskErrors    metric.Int64Counter
	taskLatency   metric.Float64Histogram
	scopes        metric.Int64Counter
	scopeLatency  metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("workerlocal")
	m := &otelMetrics{}
	var err error

	if m.slotInits, err = meter.Int64Counter("workerlocal.slot.inits",
		metric.WithDescription("Number of slots initialized by workers"),
	); err != nil {
		return nil, err
	}
	if m.bucketGrowths, err = meter.Int64Counter("workerlocal.table.growths",
		metric.WithDescription("Number of buckets published in slot tables"),
	); err != nil {
		return nil, err
	}
	if m.bucketSize, err = meter.Int64Histogram("workerlocal.table.bucket_slots",
		metric.WithDescription("Slot capacity of published buckets"),
	); err != nil {
		return nil, err
	}
	if m.drainValues, err = meter.Int64Histogram("workerlocal.drain.values",
		metric.WithDescription("Values produced by a consuming drain"),
	); err != nil {
		return nil, err
	}
	if m.drainLatency, err = meter.Float64Histogram("workerlocal.drain.latency_ms",
		metric.WithDescription("Drain latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.tasks, err = meter.Int64Counter("workerlocal.pool.tasks",
		metric.WithDescription("Number of pool tasks executed"),
	); err != nil {
		return nil, err
	}
	if m.taskErrors, err = meter.Int64Counter("workerlocal.pool.task_errors",
		metric.WithDescription("Number of pool tasks that failed or panicked"),
	); err != nil {
		return nil, err
	}
	if m.taskLatency, err = meter.Float64Histogram("workerlocal.pool.task_latency_ms",
		metric.WithDescription("Task latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.scopes, err = meter.Int64Counter("workerlocal.pool.scopes",
		metric.WithDescription("Number of pool scopes"),
	); err != nil {
		return nil, err
	}
	if m.scopeLatency, err = meter.Float64Histogram("workerlocal.pool.scope_latency_ms",
		metric.WithDescription("Scope latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordSlotInit records a slot initialization.
func (m *otelMetrics) RecordSlotInit(ctx context.Context, store string) {
	m.slotInits.Add(ctx, 1, metric.WithAttributes(attribute.String("store", store)))
}

// RecordGrowth records a bucket publication.
func (m *otelMetrics) RecordGrowth(ctx context.Context, store string, bucket, capacity int) {
	attrs := metric.WithAttributes(
		attribute.String("store", store),
		attribute.Int("bucket", bucket),
	)
	m.bucketGrowths.Add(ctx, 1, attrs)
	m.bucketSize.Record(ctx, int64(capacity), attrs)
}

// RecordDrain records a drain.
func (m *otelMetrics) RecordDrain(ctx context.Context, store string, values int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("store", store))
	m.drainValues.Record(ctx, int64(values), attrs)
	m.drainLatency.Record(ctx, Milliseconds(duration), attrs)
}

// RecordTask records a pool task.
func (m *otelMetrics) RecordTask(ctx context.Context, pool string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("pool", pool))
	m.tasks.Add(ctx, 1, attrs)
	m.taskLatency.Record(ctx, Milliseconds(duration), attrs)
	if err != nil {
		m.taskErrors.Add(ctx, 1, attrs)
	}
}

// RecordScope records a pool scope.
func (m *otelMetrics) RecordScope(ctx context.Context, pool string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("pool", pool),
		attribute.Bool("success", success),
	)
	m.scopes.Add(ctx, 1, attrs)
	m.scopeLatency.Record(ctx, Milliseconds(duration), attrs)
}
