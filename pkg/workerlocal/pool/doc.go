/*
Package pool runs tasks on a fixed set of workers, each with a stable
worker ID.

# Overview

A Pool owns size worker identities, allocated once when the pool is
created. Every Scoped call starts one goroutine per identity, feeds them the
tasks submitted by the scope body, and returns only after every task ran and
every goroutine exited. That join is what lets the caller drain per-worker
stores right after Scoped returns.

	p := pool.New(8, pool.WithName("ingest"))
	totals := workerlocal.New[int]()

	err := p.Scoped(ctx, func(s *pool.Scope) {
	    for i := 0; i < 100; i++ {
	        s.Execute(func(w pool.Worker) error {
	            *totals.GetOr(w.ID(), func() int { return 0 }) += i
	            return nil
	        })
	    }
	})

	sums := totals.Drain() // one total per worker that ran a task

Which worker runs which task is decided at run time: idle workers pull the
next task from a shared queue.

# Pool Lifetime

Worker IDs are allocated once, in New, and are never reclaimed. A store
sizes its slot table by the largest worker ID that touches it, so every
pool created in a process makes later stores larger. Create pools once,
at startup, and reuse them across scopes; do not create a pool per
request or per batch. For isolated ID spaces, such as tests, give the pool
its own allocator with WithRegistry.

# Combinators

ForEach and Map run a function over the indexes 0..n-1:

	squares, err := pool.Map(ctx, p, 10, func(w pool.Worker, i int) (int, error) {
	    return i * i, nil
	})

# Workers

Tasks receive a Worker, which is a context.Context carrying the worker ID
(see registry.FromContext) plus the worker index, the scope run ID, and an
enriched logger.

# Failures

Task errors are wrapped in *TaskError and task panics are recovered into
*TaskPanicError; the worker then moves on to the next task. Scoped returns a
*ScopeError listing every failure. With WithFailFast(true) the first failure
cancels the scope and the remaining queued tasks are skipped.

Cancelling the parent context stops the scope from handing out further
tasks. Scoped reports the cancellation, inside the *ScopeError, only when
it caused tasks to be skipped; a scope whose every task ran returns nil even
if the context was cancelled afterwards.

Side effects of failed tasks are not rolled back: a task that panics after
updating its worker's value leaves that update in place.

# Observability

	p := pool.New(8,
	    pool.WithLogger(logger),
	    pool.WithMetrics(true),
	    pool.WithTracing(true))

Logs carry pool, run_id, worker, worker_id, and worker_label (for example
"ingest/worker-3"). Metrics:
workerlocal.pool.tasks, workerlocal.pool.task_errors,
workerlocal.pool.scopes and latency histograms. Each scope is a
workerlocal.scope span.

# Thread Safety

A Pool may be shared between goroutines; Scoped calls on one pool run one
at a time so that no worker ID is ever used by two goroutines at once.
Scope.Execute must only be called by the scope body.
*/
package pool
