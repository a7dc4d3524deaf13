package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordSlotInit(ctx, "s")
		m.RecordGrowth(ctx, "s", 0, 32)
		m.RecordDrain(ctx, "s", 1, time.Millisecond)
		m.RecordTask(ctx, "p", time.Millisecond, errors.New("x"))
		m.RecordScope(ctx, "p", true, time.Millisecond)
	})
}

func TestNoopSpanManager(t *testing.T) {
	sm := NoopSpanManager{}
	ctx := context.Background()

	scopeCtx, span := sm.StartScopeSpan(ctx, "p", "r", 1)
	assert.Equal(t, ctx, scopeCtx)
	assert.False(t, span.IsRecording())

	drainCtx, span := sm.StartDrainSpan(ctx, "s")
	assert.Equal(t, ctx, drainCtx)

	assert.NotPanics(t, func() {
		sm.AddSpanEvent(ctx, "e")
		sm.EndSpanWithError(span, errors.New("x"))
	})
}
