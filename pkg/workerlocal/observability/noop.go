package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordSlotInit does nothing.
func (NoopMetrics) RecordSlotInit(_ context.Context, _ string) {}

// RecordGrowth does nothing.
func (NoopMetrics) RecordGrowth(_ context.Context, _ string, _, _ int) {}

// RecordDrain does nothing.
func (NoopMetrics) RecordDrain(_ context.Context, _ string, _ int, _ time.Duration) {}

// RecordTask does nothing.
func (NoopMetrics) RecordTask(_ context.Context, _ string, _ time.Duration, _ error) {}

// RecordScope does nothing.
func (NoopMetrics) RecordScope(_ context.Context, _ string, _ bool, _ time.Duration) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartScopeSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartScopeSpan(ctx context.Context, _, _ string, _ int) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartDrainSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartDrainSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
