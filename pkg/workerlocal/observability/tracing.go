package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("workerlocal")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartScopeSpan starts a span covering one pool scope.
	StartScopeSpan(ctx context.Context, pool, runID string, workers int) (context.Context, trace.Span)

	// StartDrainSpan starts a span covering a consuming drain.
	StartDrainSpan(ctx context.Context, store string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartScopeSpan starts a span for a pool scope.
func (m *otelSpanManager) StartScopeSpan(ctx context.Context, pool, runID string, workers int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "workerlocal.scope",
		trace.WithAttributes(
			attribute.String("pool.name", pool),
			attribute.String("run.id", runID),
			attribute.Int("pool.workers", workers),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartDrainSpan starts a span for a drain.
func (m *otelSpanManager) StartDrainSpan(ctx context.Context, store string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "workerlocal.drain",
		trace.WithAttributes(
			attribute.String("store.name", store),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
