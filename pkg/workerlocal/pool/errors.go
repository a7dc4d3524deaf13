package pool

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/workerlocal/pkg/workerlocal/registry"
)

// Sentinel errors for pool operations.
var (
	// ErrNilContext indicates Scoped was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrScopeClosed is the panic value when Execute is called after the
	// scope body returned.
	ErrScopeClosed = errors.New("scope already closed")
)

// TaskError wraps an error returned by a task.
type TaskError struct {
	// Worker is the index of the worker that ran the task.
	Worker int
	// ID is that worker's ID.
	ID registry.ID
	// Err is the error the task returned.
	Err error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("task on worker %d: %v", e.Worker, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// TaskPanicError records a task that panicked.
type TaskPanicError struct {
	// Worker is the index of the worker that ran the task.
	Worker int
	// ID is that worker's ID.
	ID registry.ID
	// Value is the value passed to panic.
	Value any
	// Stack is the goroutine stack at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("task on worker %d panicked: %v", e.Worker, e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *TaskPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ScopeError reports the failures of one scope.
type ScopeError struct {
	// RunID identifies the scope.
	RunID string
	// Submitted is how many tasks the scope body submitted.
	Submitted int
	// Failed is how many tasks returned an error or panicked.
	Failed int
	// Skipped is how many tasks never ran because the scope was cancelled.
	Skipped int
	// Errs holds each task failure, followed by the context error if the
	// scope was cancelled.
	Errs []error
}

// Error implements the error interface.
func (e *ScopeError) Error() string {
	msg := fmt.Sprintf("scope %s: %d of %d tasks failed", e.RunID, e.Failed, e.Submitted)
	if e.Skipped > 0 {
		msg += fmt.Sprintf(", %d skipped", e.Skipped)
	}
	if len(e.Errs) > 0 {
		msg += ": " + e.Errs[0].Error()
	}
	return msg
}

// Unwrap returns every recorded error for errors.Is/As support.
func (e *ScopeError) Unwrap() []error {
	return e.Errs
}
