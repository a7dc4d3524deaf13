package workerlocal_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/randalmurphal/workerlocal/pkg/workerlocal"
	"github.com/randalmurphal/workerlocal/pkg/workerlocal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runWorkers starts one goroutine per ID and waits for all of them.
func runWorkers(ids []registry.ID, fn func(id registry.ID)) {
	var wg sync.WaitGroup
	wg.Add(len(ids))
	for _, id := range ids {
		go func() {
			defer wg.Done()
			fn(id)
		}()
	}
	wg.Wait()
}

func allocate(n int) []registry.ID {
	a := registry.NewAllocator()
	ids := make([]registry.ID, n)
	for i := range ids {
		ids[i] = a.Next()
	}
	return ids
}

func TestStore_OneValuePerWorker(t *testing.T) {
	ids := allocate(16)
	store := workerlocal.New[uint64]()

	runWorkers(ids, func(id registry.ID) {
		v := store.GetOr(id, func() uint64 { return 0 })
		*v = uint64(id) * 10
	})

	assert.Equal(t, 16, store.Len())
	entries := store.DrainEntries()
	require.Len(t, entries, 16)
	for i, e := range entries {
		assert.Equal(t, ids[i], e.ID, "entries ordered by worker id")
		assert.Equal(t, uint64(e.ID)*10, e.Value)
	}
}

func TestStore_InitRunsOncePerWorker(t *testing.T) {
	ids := allocate(8)
	store := workerlocal.New[int]()
	var inits atomic.Int32

	runWorkers(ids, func(id registry.ID) {
		first := store.GetOr(id, func() int {
			inits.Add(1)
			return 1
		})
		for i := 0; i < 100; i++ {
			again := store.GetOr(id, func() int {
				inits.Add(1)
				return -1
			})
			if again != first {
				t.Errorf("worker %d got a different pointer on call %d", id, i)
				return
			}
			*again++
		}
	})

	assert.Equal(t, int32(8), inits.Load())
	for _, v := range store.Drain() {
		assert.Equal(t, 101, v)
	}
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	const workers = 64
	const updates = 1000

	ids := allocate(workers)
	store := workerlocal.New[int]()

	runWorkers(ids, func(id registry.ID) {
		for i := 0; i < updates; i++ {
			*store.GetOr(id, func() int { return 0 }) += 1
		}
	})

	values := store.Drain()
	require.Len(t, values, workers)
	for _, v := range values {
		assert.Equal(t, updates, v)
	}
}

func TestStore_ReferencesSurviveGrowth(t *testing.T) {
	const workers = 100

	ids := allocate(workers)
	store := workerlocal.New[int]()
	ptrs := make([]*int, workers)

	// Every worker takes its pointer and writes through it only after all
	// workers have forced the table past its first bucket.
	var ready sync.WaitGroup
	ready.Add(workers)
	runWorkers(ids, func(id registry.ID) {
		p := store.GetOr(id, func() int { return -1 })
		ptrs[id] = p
		ready.Done()
		ready.Wait()
		*p = int(id)
	})

	assert.Greater(t, store.Buckets(), 1)
	for id, p := range ptrs {
		got, ok := store.Get(registry.ID(id))
		require.True(t, ok)
		assert.Same(t, p, got)
		assert.Equal(t, id, *got)
	}

	values := store.Drain()
	require.Len(t, values, workers)
	for i, v := range values {
		assert.Equal(t, i, v)
	}
}

func TestStore_Independent(t *testing.T) {
	ids := allocate(4)
	counts := workerlocal.New[int](workerlocal.WithName("counts"))
	names := workerlocal.New[string](workerlocal.WithName("names"))

	runWorkers(ids, func(id registry.ID) {
		*counts.GetOr(id, func() int { return 0 }) += int(id)
		if id%2 == 0 {
			*names.GetOr(id, func() string { return "" }) = id.String()
		}
	})

	assert.Equal(t, 4, counts.Len())
	assert.Equal(t, 2, names.Len())
	assert.Equal(t, []string{"0", "2"}, names.Drain())

	// Draining one store leaves the other untouched.
	v, ok := counts.Get(ids[3])
	require.True(t, ok)
	assert.Equal(t, 3, *v)
	assert.Equal(t, []int{0, 1, 2, 3}, counts.Drain())
}

func TestStore_Get(t *testing.T) {
	store := workerlocal.New[int]()

	_, ok := store.Get(5)
	assert.False(t, ok)

	*store.GetOr(5, func() int { return 0 }) = 42
	v, ok := store.Get(5)
	require.True(t, ok)
	assert.Equal(t, 42, *v)
}

func TestStore_DrainEmpty(t *testing.T) {
	store := workerlocal.New[int]()
	assert.Empty(t, store.Drain())
}

func TestStore_UseAfterDrain(t *testing.T) {
	store := workerlocal.New[int]()
	store.GetOr(0, func() int { return 1 })
	require.Equal(t, []int{1}, store.Drain())

	assert.Nil(t, store.Drain(), "second drain returns nil")
	assert.Nil(t, store.DrainEntries())
	assert.Equal(t, 0, store.Len())
	assert.PanicsWithValue(t, workerlocal.ErrDrained, func() {
		store.GetOr(0, func() int { return 2 })
	})
	assert.PanicsWithValue(t, workerlocal.ErrDrained, func() {
		store.Get(0)
	})
}

func TestStore_Reentrant(t *testing.T) {
	store := workerlocal.New[int]()

	assert.PanicsWithValue(t, workerlocal.ErrReentrant, func() {
		store.GetOr(1, func() int {
			store.GetOr(1, func() int { return 0 })
			return 1
		})
	})

	// The failed initializer leaves the slot empty.
	_, ok := store.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 7, *store.GetOr(1, func() int { return 7 }))
}

func TestStore_NestedStoresAllowed(t *testing.T) {
	outer := workerlocal.New[int]()
	inner := workerlocal.New[int]()

	v := outer.GetOr(0, func() int {
		return *inner.GetOr(0, func() int { return 5 }) * 2
	})
	assert.Equal(t, 10, *v)
}

func TestStore_InitialCapacity(t *testing.T) {
	store := workerlocal.New[int](workerlocal.WithInitialCapacity(2))

	store.GetOr(0, func() int { return 0 })
	assert.Equal(t, 1, store.Buckets())

	// Buckets hold 2, 4, 12 slots.
	store.GetOr(6, func() int { return 6 })
	assert.Equal(t, 3, store.Buckets())
	assert.Equal(t, []int{0, 6}, store.Drain())
}

func TestStore_GetOrContext(t *testing.T) {
	store := workerlocal.New[int]()

	_, err := store.GetOrContext(context.Background(), func() int { return 0 })
	assert.ErrorIs(t, err, workerlocal.ErrNoWorker)

	ctx := registry.NewContext(context.Background(), 3)
	v, err := store.GetOrContext(ctx, func() int { return 9 })
	require.NoError(t, err)
	assert.Equal(t, 9, *v)

	entries := store.DrainEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, registry.ID(3), entries[0].ID)
}

func TestStore_Name(t *testing.T) {
	assert.Equal(t, "store", workerlocal.New[int]().Name())
	assert.Equal(t, "totals", workerlocal.New[int](workerlocal.WithName("totals")).Name())
	assert.Equal(t, "store", workerlocal.New[int](workerlocal.WithName("")).Name())
}

func TestStore_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store := workerlocal.New[int](
		workerlocal.WithName("logged"),
		workerlocal.WithInitialCapacity(1),
		workerlocal.WithLogger(logger),
	)
	store.GetOr(2, func() int { return 0 })
	store.Drain()

	out := buf.String()
	assert.Contains(t, out, "slot table grew")
	assert.Contains(t, out, "store drained")
	assert.Contains(t, out, "store=logged")
}

type closer struct {
	closed *atomic.Int32
	err    error
}

func (c closer) Close() error {
	c.closed.Add(1)
	return c.err
}

func TestStore_Discard(t *testing.T) {
	var closed atomic.Int32
	boom := errors.New("boom")
	store := workerlocal.New[closer]()

	store.GetOr(0, func() closer { return closer{closed: &closed} })
	store.GetOr(1, func() closer { return closer{closed: &closed, err: boom} })
	store.GetOr(2, func() closer { return closer{closed: &closed} })

	err := store.Discard()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), closed.Load())
	assert.NoError(t, store.Discard(), "already drained")
}

type pointerCloser struct {
	closed *atomic.Int32
}

func (p *pointerCloser) Close() error {
	p.closed.Add(1)
	return nil
}

func TestStore_DiscardPointerReceiver(t *testing.T) {
	var closed atomic.Int32
	store := workerlocal.New[pointerCloser]()
	store.GetOr(0, func() pointerCloser { return pointerCloser{closed: &closed} })

	assert.NoError(t, store.Discard())
	assert.Equal(t, int32(1), closed.Load())
}

func TestStore_DrainEntriesSorted(t *testing.T) {
	store := workerlocal.New[int]()
	for _, id := range []registry.ID{40, 3, 17, 0} {
		store.GetOr(id, func() int { return int(id) })
	}

	entries := store.DrainEntries()
	got := make([]int, len(entries))
	for i, e := range entries {
		got[i] = e.Value
	}
	assert.True(t, sort.IntsAreSorted(got))
	assert.Equal(t, []int{0, 3, 17, 40}, got)
}
