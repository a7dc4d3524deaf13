package registry

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_NextIsDense(t *testing.T) {
	a := NewAllocator()

	for want := 0; want < 10; want++ {
		assert.Equal(t, ID(want), a.Next())
	}
	assert.Equal(t, 10, a.Allocated())
}

func TestAllocator_ZeroValue(t *testing.T) {
	var a Allocator
	assert.Equal(t, ID(0), a.Next())
	assert.Equal(t, ID(1), a.Next())
}

func TestAllocator_ConcurrentNextIsUnique(t *testing.T) {
	a := NewAllocator()
	const goroutines = 64
	const perGoroutine = 100

	ids := make([][]ID, goroutines)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				ids[g] = append(ids[g], a.Next())
			}
		}(g)
	}
	wg.Wait()

	var all []int
	for _, batch := range ids {
		for _, id := range batch {
			all = append(all, int(id))
		}
	}
	sort.Ints(all)

	require.Len(t, all, goroutines*perGoroutine)
	for i, id := range all {
		assert.Equal(t, i, id, "ids must be dense with no duplicates")
	}
}

func TestAllocator_Labels(t *testing.T) {
	a := NewAllocator()

	id := a.NextLabeled("ingest/worker-0")
	other := a.Next()

	assert.Equal(t, "ingest/worker-0", a.Label(id))
	assert.Equal(t, other.String(), a.Label(other))

	a.SetLabel(other, "ingest/worker-1")
	assert.Equal(t, "ingest/worker-1", a.Label(other))
}

func TestContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		ctx := NewContext(context.Background(), ID(7))
		id, ok := FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, ID(7), id)
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := FromContext(context.Background())
		assert.False(t, ok)
	})

	t.Run("nil context", func(t *testing.T) {
		//nolint:staticcheck // exercising the nil guard
		_, ok := FromContext(nil)
		assert.False(t, ok)
	})
}

func TestEnsure(t *testing.T) {
	a := NewAllocator()

	ctx, first := Ensure(context.Background(), a)
	again, second := Ensure(ctx, a)

	assert.Equal(t, first, second)
	assert.Equal(t, ctx, again)
	assert.Equal(t, 1, a.Allocated())

	_, third := Ensure(context.Background(), a)
	assert.NotEqual(t, first, third)
}
