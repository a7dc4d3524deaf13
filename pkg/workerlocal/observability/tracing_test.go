package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest installs a tracer provider backed by an in-memory exporter.
func setupTracingTest(t *testing.T) *tracetest.InMemoryExporter {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("workerlocal")

	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		tracer = otel.Tracer("workerlocal")
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	})
	return exporter
}

func attrString(attrs []attribute.KeyValue, key string) string {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value.Emit()
		}
	}
	return ""
}

func TestSpanManager_ScopeSpan(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	ctx, span := sm.StartScopeSpan(context.Background(), "ingest", "scope-9", 8)
	sm.AddSpanEvent(ctx, "task.failed", attribute.Int("worker", 2))
	sm.EndSpanWithError(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "workerlocal.scope", s.Name)
	assert.Equal(t, "ingest", attrString(s.Attributes, "pool.name"))
	assert.Equal(t, "scope-9", attrString(s.Attributes, "run.id"))
	assert.Equal(t, "8", attrString(s.Attributes, "pool.workers"))
	assert.Equal(t, codes.Ok, s.Status.Code)
	require.Len(t, s.Events, 1)
	assert.Equal(t, "task.failed", s.Events[0].Name)
}

func TestSpanManager_DrainSpanWithError(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	_, span := sm.StartDrainSpan(context.Background(), "totals")
	sm.EndSpanWithError(span, errors.New("send interrupted"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "workerlocal.drain", spans[0].Name)
	assert.Equal(t, "totals", attrString(spans[0].Attributes, "store.name"))
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "send interrupted", spans[0].Status.Description)
}

func TestEndSpanWithError_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() { EndSpanWithError(nil, errors.New("x")) })
}

func TestAddSpanEvent_NoSpan(t *testing.T) {
	assert.NotPanics(t, func() { AddSpanEvent(context.Background(), "event") })
}
