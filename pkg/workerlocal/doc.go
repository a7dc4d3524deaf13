/*
Package workerlocal provides per-worker storage: one lazily created value per
worker, reached without locks while the workers run and collected in one
consuming drain after they have been joined.

# Overview

A typical use is a parallel reduction. Each worker accumulates into its own
value, so no two workers ever touch the same memory, and the owner combines
the partial results at the end:

	p := pool.New(8)
	totals := workerlocal.New[int](workerlocal.WithName("totals"))

	err := p.Scoped(ctx, func(s *pool.Scope) {
	    for i := 0; i < 100; i++ {
	        s.Execute(func(w pool.Worker) error {
	            *totals.GetOr(w.ID(), func() int { return 0 }) += i
	            return nil
	        })
	    }
	})
	if err != nil {
	    return err
	}

	sum := 0
	for _, v := range totals.Drain() {
	    sum += v
	}
	// sum == 4950

Go has no goroutine identity, so a worker names itself with a registry.ID.
The pool package hands each worker a stable ID; code that manages its own
goroutines allocates one with registry.Next and passes it along, either
directly or in a context (registry.NewContext, Store.GetOrContext).

# Worker IDs and Growth

IDs are dense integers starting at 0 and are never reused. A store keeps its
values in a slot table made of buckets: the first holds 32 slots (see
WithInitialCapacity) and each later bucket is twice the size of all the
previous ones together. Buckets are never moved or freed while the store is
live, so a pointer returned by GetOr stays valid while other workers make
the table grow.

# Drain

Drain returns one value per worker that called GetOr, ordered by worker ID,
and leaves the store spent. It must only be called once every worker is
finished and joined; pool.Scoped and sync.WaitGroup.Wait both qualify. Using
a spent store panics with ErrDrained.

Drained values are ordinary Go values. DrainEntries keeps the worker ID of
each value and Discard closes values that implement io.Closer.

# Handing Stores to Other Goroutines

A value that is not safe for concurrent use may still be safe to hand to
another goroutine once nobody else touches it. Types that make that promise
implement MostlySend. Move hands a whole store to a new owner and DrainTo
streams its values to a consumer; both require T to be MostlySend and
reject anything else at compile time. FullySend wraps plain data that
trivially qualifies:

	partials := workerlocal.New[workerlocal.FullySend[[]string]]()
	...
	out := make(chan workerlocal.FullySend[[]string])
	go consume(out)
	err := workerlocal.DrainTo(ctx, partials, out)

The arena package provides an allocator and a growable vector marked
MostlySend, and the sink package persists drained values.

# Observability

Stores and pools log through slog when given a logger and emit OpenTelemetry
metrics and spans when enabled:

	totals := workerlocal.New[int](
	    workerlocal.WithLogger(logger),
	    workerlocal.WithMetrics(true),
	    workerlocal.WithTracing(true),
	)

Both use the global providers. Slot initializations, table growth and
drains are recorded for stores; tasks and scopes for pools.

# Errors

Contract violations panic with a sentinel error:

	ErrReentrant         GetOr while the same worker's initializer runs
	ErrCapacityExceeded  worker ID beyond the last bucket
	ErrDrained           store used after Drain
	ErrMoved             store handle used after Move

Failures the caller can handle are returned: ErrNoWorker from GetOrContext
and *TransferError from DrainTo.

# Thread Safety

GetOr and Get may be called concurrently by different workers, each with its
own ID. Len and Buckets may be called at any time. Drain, DrainEntries,
Discard, Move and DrainTo require all workers to be joined.
*/
package workerlocal
