// Package slots implements the growable slot table behind per-worker stores.
//
// A Table is an append-only sequence of buckets. Bucket 0 holds the initial
// capacity; every later bucket holds twice the combined capacity of the
// buckets before it, so N workers need O(log N) buckets. Buckets are
// published through atomic pointers and never move once published, which
// keeps every *T handed out valid for the life of the table.
//
// Lookups never take a lock. Only publishing a new bucket is serialized.
package slots

import (
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/randalmurphal/workerlocal/pkg/workerlocal/registry"
)

// DefaultInitialCapacity is the number of slots in bucket 0 when none is given.
const DefaultInitialCapacity = 32

// maxBuckets bounds the bucket sequence. With the default initial capacity
// the last bucket ends past 10^16 slots.
const maxBuckets = 32

var (
	// ErrReentrant is the panic value when a slot is entered while its
	// initializer is still running, either from inside the initializer or
	// from a second goroutine using the same ID.
	ErrReentrant = errors.New("slot initializer re-entered")

	// ErrCapacityExceeded is the panic value when an ID lies past the last
	// bucket the table can ever publish.
	ErrCapacityExceeded = errors.New("slot table capacity exceeded")
)

const (
	stateEmpty uint32 = iota
	stateInitializing
	stateReady
)

type slot[T any] struct {
	state atomic.Uint32
	value T
	_     cpu.CacheLinePad
}

type bucket[T any] struct {
	slots []slot[T]
}

// Entry pairs a drained value with the ID that produced it.
type Entry[T any] struct {
	ID    registry.ID
	Value T
}

// Hooks observe table events. Hooks run on the goroutine that caused the
// event; OnGrow runs while the growth lock is held and must not touch the
// table.
type Hooks struct {
	// OnInit is called after a slot's initializer returned.
	OnInit func(id registry.ID)
	// OnGrow is called after bucket index was published with capacity slots.
	OnGrow func(index, capacity int)
}

// Table stores at most one T per ID.
type Table[T any] struct {
	buckets [maxBuckets]atomic.Pointer[bucket[T]]
	// bases[k] is the first ID stored in bucket k; bases[k+1]-bases[k] is
	// its capacity.
	bases    [maxBuckets + 1]uint64
	nbuckets int

	published   atomic.Int32
	initialized atomic.Int64

	mu    sync.Mutex // serializes bucket publication and Drain
	hooks Hooks
}

// New creates an empty table whose first bucket holds initialCapacity slots.
// Values below 1 select DefaultInitialCapacity.
func New[T any](initialCapacity int, hooks Hooks) *Table[T] {
	if initialCapacity < 1 {
		initialCapacity = DefaultInitialCapacity
	}
	t := &Table[T]{hooks: hooks}

	const limit = ^uint64(0)
	t.bases[1] = uint64(initialCapacity)
	t.nbuckets = 1
	for k := 1; k < maxBuckets; k++ {
		prior := t.bases[k]
		if prior > (limit-prior)/2 {
			break
		}
		t.bases[k+1] = prior + 2*prior
		t.nbuckets = k + 1
	}
	return t
}

// locate maps id to its bucket and offset.
func (t *Table[T]) locate(id registry.ID) (int, uint64) {
	n := uint64(id)
	for k := 0; k < t.nbuckets; k++ {
		if n < t.bases[k+1] {
			return k, n - t.bases[k]
		}
	}
	panic(ErrCapacityExceeded)
}

// slotFor returns the slot for id, publishing buckets as needed.
func (t *Table[T]) slotFor(id registry.ID) *slot[T] {
	k, off := t.locate(id)
	b := t.buckets[k].Load()
	if b == nil {
		b = t.grow(k)
	}
	return &b.slots[off]
}

// grow publishes buckets up to and including k, in order.
//
//go:noinline
func (t *Table[T]) grow(k int) *bucket[T] {
	t.mu.Lock()
	defer t.mu.Unlock()

	for j := int(t.published.Load()); j <= k; j++ {
		if t.buckets[j].Load() != nil {
			// another goroutine already published it
			continue
		}
		capacity := int(t.bases[j+1] - t.bases[j])
		t.buckets[j].Store(&bucket[T]{slots: make([]slot[T], capacity)})
		t.published.Store(int32(j + 1))
		if t.hooks.OnGrow != nil {
			t.hooks.OnGrow(j, capacity)
		}
	}
	return t.buckets[k].Load()
}

// GetOrInit returns the value stored for id. If the slot is empty, init runs
// exactly once and its result is installed. Calls for other IDs never wait
// on init.
//
// If init panics the slot stays empty and the panic propagates.
func (t *Table[T]) GetOrInit(id registry.ID, init func() T) *T {
	s := t.slotFor(id)
	if s.state.Load() == stateReady {
		return &s.value
	}
	if !s.state.CompareAndSwap(stateEmpty, stateInitializing) {
		panic(ErrReentrant)
	}

	done := false
	defer func() {
		if !done {
			s.state.Store(stateEmpty)
		}
	}()
	s.value = init()
	done = true
	s.state.Store(stateReady)
	t.initialized.Add(1)

	if t.hooks.OnInit != nil {
		t.hooks.OnInit(id)
	}
	return &s.value
}

// Get returns the value stored for id, if its slot was initialized.
func (t *Table[T]) Get(id registry.ID) (*T, bool) {
	k, off := t.locate(id)
	b := t.buckets[k].Load()
	if b == nil {
		return nil, false
	}
	s := &b.slots[off]
	if s.state.Load() != stateReady {
		return nil, false
	}
	return &s.value, true
}

// Len returns the number of initialized slots.
func (t *Table[T]) Len() int {
	return int(t.initialized.Load())
}

// Buckets returns the number of published buckets.
func (t *Table[T]) Buckets() int {
	return int(t.published.Load())
}

// Capacity returns the number of slots across published buckets.
func (t *Table[T]) Capacity() int {
	return int(t.bases[t.published.Load()])
}

// BucketCapacity returns the slot count of bucket k, published or not.
func (t *Table[T]) BucketCapacity(k int) int {
	if k < 0 || k >= t.nbuckets {
		return 0
	}
	return int(t.bases[k+1] - t.bases[k])
}

// Drain removes every initialized value, in ID order, and leaves the table
// empty. The caller must guarantee no goroutine is still using a value
// obtained from the table; Drain only orders itself after writes that were
// published before it, such as those of workers that have been joined.
func (t *Table[T]) Drain() []Entry[T] {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry[T], 0, t.initialized.Load())
	n := int(t.published.Load())
	for k := 0; k < n; k++ {
		b := t.buckets[k].Load()
		for i := range b.slots {
			s := &b.slots[i]
			if s.state.Load() != stateReady {
				continue
			}
			out = append(out, Entry[T]{
				ID:    registry.ID(t.bases[k] + uint64(i)),
				Value: s.value,
			})
		}
		t.buckets[k].Store(nil)
	}
	t.published.Store(0)
	t.initialized.Store(0)
	return out
}
