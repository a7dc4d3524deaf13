package workerlocal

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/randalmurphal/workerlocal/pkg/workerlocal/observability"
	"github.com/randalmurphal/workerlocal/pkg/workerlocal/registry"
	"github.com/randalmurphal/workerlocal/pkg/workerlocal/slots"
)

const (
	stateLive uint32 = iota
	stateDrained
	stateMoved
)

// Entry is a drained value together with the worker ID that produced it.
type Entry[T any] struct {
	ID    registry.ID
	Value T
}

// Store holds one lazily created T per worker.
//
// While workers run, each worker reaches only its own value through GetOr,
// and nothing else synchronizes access to it. Once every worker has been
// joined, the owner collects all values with Drain.
//
// A Store must not be copied after first use.
type Store[T any] struct {
	table *slots.Table[T]
	state atomic.Uint32
	cfg   storeConfig

	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// New creates an empty store.
//
// Example:
//
//	totals := workerlocal.New[int](workerlocal.WithName("totals"))
//	p.Scoped(ctx, func(s *pool.Scope) {
//	    for i := 0; i < 100; i++ {
//	        s.Execute(func(w pool.Worker) error {
//	            *totals.GetOr(w.ID(), func() int { return 0 }) += i
//	            return nil
//	        })
//	    }
//	})
//	sums := totals.Drain()
func New[T any](opts ...Option) *Store[T] {
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store[T]{
		cfg:     cfg,
		metrics: cfg.metrics(),
		spans:   cfg.spans(),
	}
	s.table = slots.New[T](cfg.initialCapacity, slots.Hooks{
		OnInit: func(registry.ID) {
			s.metrics.RecordSlotInit(context.Background(), cfg.name)
		},
		OnGrow: func(index, capacity int) {
			observability.LogGrowth(cfg.logger, cfg.name, index, capacity)
			s.metrics.RecordGrowth(context.Background(), cfg.name, index, capacity)
		},
	})
	return s
}

// Name returns the store name given by WithName.
func (s *Store[T]) Name() string {
	return s.cfg.name
}

// GetOr returns the value owned by worker id, creating it with init on the
// worker's first call. init runs exactly once per worker and store. The
// returned pointer stays valid, and keeps pointing at the same value, until
// the store is drained, even if the worker exits first.
//
// Only the goroutine acting as worker id may call GetOr with that id, and it
// must not call GetOr on the same store from inside init. Either mistake
// panics with ErrReentrant when detected.
func (s *Store[T]) GetOr(id registry.ID, init func() T) *T {
	s.mustBeLive()
	return s.table.GetOrInit(id, init)
}

// GetOrContext is GetOr for the worker ID carried by ctx.
// Returns ErrNoWorker if ctx carries none.
func (s *Store[T]) GetOrContext(ctx context.Context, init func() T) (*T, error) {
	id, ok := registry.FromContext(ctx)
	if !ok {
		return nil, ErrNoWorker
	}
	return s.GetOr(id, init), nil
}

// Get returns the value owned by worker id if that worker initialized one.
func (s *Store[T]) Get(id registry.ID) (*T, bool) {
	s.mustBeLive()
	return s.table.Get(id)
}

// Len returns how many workers have initialized a value. While workers are
// running the count is only a snapshot.
func (s *Store[T]) Len() int {
	return s.table.Len()
}

// Buckets returns how many buckets the slot table has published.
func (s *Store[T]) Buckets() int {
	return s.table.Buckets()
}

// Drain takes every value out of the store, one per worker that initialized
// a slot, ordered by worker ID. Afterwards the store is spent: GetOr and Get
// panic with ErrDrained, and a second Drain returns nil.
//
// Drain must only be called once all workers are finished and joined, for
// example after pool.Scoped returns or after sync.WaitGroup.Wait. The join
// orders every worker's writes before Drain, so each drained value is the
// last one its worker wrote.
func (s *Store[T]) Drain() []T {
	entries := s.drain(context.Background())
	if entries == nil {
		return nil
	}
	values := make([]T, len(entries))
	for i, e := range entries {
		values[i] = e.Value
	}
	return values
}

// DrainEntries is Drain, keeping the worker ID of each value.
func (s *Store[T]) DrainEntries() []Entry[T] {
	return s.drain(context.Background())
}

// Discard drains the store and closes every value that implements io.Closer.
// Close errors are joined.
func (s *Store[T]) Discard() error {
	entries := s.drain(context.Background())
	var errs []error
	for i := range entries {
		if err := closeValue(&entries[i].Value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeValue[T any](v *T) error {
	if c, ok := any(*v).(io.Closer); ok {
		return c.Close()
	}
	if c, ok := any(v).(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Store[T]) drain(ctx context.Context) []Entry[T] {
	if !s.state.CompareAndSwap(stateLive, stateDrained) {
		if s.state.Load() == stateMoved {
			panic(ErrMoved)
		}
		return nil
	}

	elapsed := observability.TimedOperation()
	ctx, span := s.spans.StartDrainSpan(ctx, s.cfg.name)
	drained := s.table.Drain()

	entries := make([]Entry[T], len(drained))
	for i, e := range drained {
		entries[i] = Entry[T]{ID: e.ID, Value: e.Value}
	}

	d := elapsed()
	observability.LogDrain(s.cfg.logger, s.cfg.name, len(entries), observability.Milliseconds(d))
	s.metrics.RecordDrain(ctx, s.cfg.name, len(entries), d)
	s.spans.EndSpanWithError(span, nil)
	return entries
}

func (s *Store[T]) mustBeLive() {
	switch s.state.Load() {
	case stateDrained:
		panic(ErrDrained)
	case stateMoved:
		panic(ErrMoved)
	}
}

// Move transfers the store to a new handle, for handing it to another
// goroutine. The old handle is spent and panics with ErrMoved on use.
//
// Moving requires T to be MostlySend. Like Drain, it must only be called
// after all workers have been joined.
func Move[T MostlySend](s *Store[T]) *Store[T] {
	if !s.state.CompareAndSwap(stateLive, stateMoved) {
		s.mustBeLive()
		panic(ErrMoved)
	}
	moved := &Store[T]{
		table:   s.table,
		cfg:     s.cfg,
		metrics: s.metrics,
		spans:   s.spans,
	}
	return moved
}

// DrainTo drains the store and sends every value on out, for a consumer
// running on another goroutine. It does not close out.
//
// If ctx ends before every value is sent, the rest are dropped and a
// *TransferError is returned.
func DrainTo[T MostlySend](ctx context.Context, s *Store[T], out chan<- T) error {
	entries := s.drain(ctx)
	for i, e := range entries {
		select {
		case out <- e.Value:
		case <-ctx.Done():
			return &TransferError{
				Store:     s.cfg.name,
				Delivered: i,
				Dropped:   len(entries) - i,
				Err:       ctx.Err(),
			}
		}
	}
	return nil
}
