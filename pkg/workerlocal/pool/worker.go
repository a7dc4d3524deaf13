package pool

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/workerlocal/pkg/workerlocal/registry"
)

// Worker is the context a task runs in.
type Worker interface {
	context.Context

	// ID returns the worker's ID, stable for the life of the pool.
	ID() registry.ID

	// Index returns the worker's position in the pool, 0..Size()-1.
	Index() int

	// RunID returns the identifier of the current scope.
	RunID() string

	// Logger returns a logger enriched with pool, run, and worker fields.
	// Never returns nil.
	Logger() *slog.Logger
}

// worker is the internal implementation of Worker.
type worker struct {
	context.Context

	id     registry.ID
	index  int
	runID  string
	logger *slog.Logger
}

// ID returns the worker ID.
func (w *worker) ID() registry.ID {
	return w.id
}

// Index returns the worker index.
func (w *worker) Index() int {
	return w.index
}

// RunID returns the scope run ID.
func (w *worker) RunID() string {
	return w.runID
}

// Logger returns the worker logger.
func (w *worker) Logger() *slog.Logger {
	return w.logger
}
