package pool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/workerlocal/pkg/workerlocal/observability"
	"github.com/randalmurphal/workerlocal/pkg/workerlocal/registry"
)

// Task is a unit of work run by one worker.
type Task func(w Worker) error

// Pool is a fixed set of worker identities.
type Pool struct {
	cfg poolConfig
	ids []registry.ID

	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	mu sync.Mutex // one scope at a time
}

// New creates a pool of size workers. A size below 1 selects
// runtime.GOMAXPROCS(0).
//
// Each call takes size worker IDs from the allocator for good. Create a
// pool once and reuse it across scopes.
func New(size int, opts ...Option) *Pool {
	cfg := defaultPoolConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if size < 1 {
		size = runtime.GOMAXPROCS(0)
	}

	ids := make([]registry.ID, size)
	for i := range ids {
		ids[i] = cfg.ids.NextLabeled(fmt.Sprintf("%s/worker-%d", cfg.name, i))
	}

	return &Pool{
		cfg:     cfg,
		ids:     ids,
		metrics: cfg.metrics(),
		spans:   cfg.spans(),
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.ids)
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.cfg.name
}

// IDs returns the worker IDs, indexed by worker index.
func (p *Pool) IDs() []registry.ID {
	out := make([]registry.ID, len(p.ids))
	copy(out, p.ids)
	return out
}

// Scope collects the tasks of one Scoped call.
type Scope struct {
	ctx       context.Context
	tasks     chan Task
	closed    atomic.Bool
	submitted atomic.Int64
	skipped   atomic.Int64
}

// Execute submits a task. It blocks until a worker accepts the task or the
// queue has room. If the scope was cancelled the task is skipped.
func (s *Scope) Execute(task Task) {
	if s.closed.Load() {
		panic(ErrScopeClosed)
	}
	s.submitted.Add(1)
	if s.ctx.Err() != nil {
		s.skipped.Add(1)
		return
	}
	select {
	case s.tasks <- task:
	case <-s.ctx.Done():
		s.skipped.Add(1)
	}
}

// collector gathers task failures from all workers.
type collector struct {
	mu   sync.Mutex
	errs []error
}

func (c *collector) add(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

// Scoped runs fn, which submits tasks with Scope.Execute, and waits until
// every submitted task finished and every worker goroutine exited. All
// writes made by tasks happen before Scoped returns.
//
// If fn panics, Scoped still waits for the workers and then re-panics.
func (p *Pool) Scoped(ctx context.Context, fn func(s *Scope)) error {
	if ctx == nil {
		return ErrNilContext
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	runID := "scope-" + uuid.New().String()[:8]
	elapsed := observability.TimedOperation()
	ctx, span := p.spans.StartScopeSpan(ctx, p.cfg.name, runID, len(p.ids))
	observability.LogScopeStart(p.cfg.logger, p.cfg.name, runID, len(p.ids))

	g, gctx := errgroup.WithContext(ctx)
	scope := &Scope{
		ctx:   gctx,
		tasks: make(chan Task, p.cfg.queueDepth),
	}
	failures := &collector{}

	base := p.cfg.logger
	if base == nil {
		base = slog.Default()
	}
	for i, id := range p.ids {
		logger := observability.EnrichLogger(base, observability.WorkerFields{
			Pool:  p.cfg.name,
			RunID: runID,
			Index: i,
			ID:    uint64(id),
			Label: p.cfg.ids.Label(id),
		})
		w := &worker{
			Context: registry.NewContext(gctx, id),
			id:      id,
			index:   i,
			runID:   runID,
			logger:  logger,
		}
		g.Go(func() error {
			return p.work(w, scope, failures)
		})
	}

	var bodyPanic any
	func() {
		defer func() {
			bodyPanic = recover()
			scope.closed.Store(true)
			close(scope.tasks)
		}()
		fn(scope)
	}()

	_ = g.Wait()
	for range scope.tasks {
		// queued but never picked up after cancellation
		scope.skipped.Add(1)
	}
	if bodyPanic != nil {
		p.spans.EndSpanWithError(span, fmt.Errorf("scope body panicked: %v", bodyPanic))
		panic(bodyPanic)
	}

	err := p.result(ctx, runID, scope, failures)
	d := elapsed()
	durationMs := observability.Milliseconds(d)
	if err != nil {
		observability.LogScopeError(p.cfg.logger, p.cfg.name, runID, err, len(failures.errs), durationMs)
	} else {
		observability.LogScopeComplete(p.cfg.logger, p.cfg.name, runID, int(scope.submitted.Load()), durationMs)
	}
	p.metrics.RecordScope(ctx, p.cfg.name, err == nil, d)
	p.spans.EndSpanWithError(span, err)
	return err
}

func (p *Pool) result(ctx context.Context, runID string, scope *Scope, failures *collector) error {
	skipped := int(scope.skipped.Load())
	if len(failures.errs) == 0 && skipped == 0 {
		return nil
	}
	errs := append([]error(nil), failures.errs...)
	if ctxErr := ctx.Err(); ctxErr != nil && skipped > 0 {
		errs = append(errs, ctxErr)
	}
	return &ScopeError{
		RunID:     runID,
		Submitted: int(scope.submitted.Load()),
		Failed:    len(failures.errs),
		Skipped:   skipped,
		Errs:      errs,
	}
}

// work is the loop of one worker goroutine.
func (p *Pool) work(w *worker, scope *Scope, failures *collector) error {
	for {
		select {
		case <-w.Done():
			return nil
		case task, ok := <-scope.tasks:
			if !ok {
				return nil
			}
			if err := p.run(w, task); err != nil {
				failures.add(err)
				p.spans.AddSpanEvent(w, "task.failed",
					attribute.Int("worker", w.index),
					attribute.String("error", err.Error()))
				if p.cfg.failFast {
					return err
				}
			}
		}
	}
}

// run executes one task, converting a panic into *TaskPanicError.
func (p *Pool) run(w *worker, task Task) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			observability.LogTaskPanic(w.logger, w.index, r)
			err = &TaskPanicError{Worker: w.index, ID: w.id, Value: r, Stack: debug.Stack()}
		}
		p.metrics.RecordTask(w, p.cfg.name, time.Since(start), err)
	}()

	if taskErr := task(w); taskErr != nil {
		return &TaskError{Worker: w.index, ID: w.id, Err: taskErr}
	}
	return nil
}
