package workerlocal

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/workerlocal/pkg/workerlocal/slots"
)

// Sentinel errors used as panic values for contract violations.
var (
	// ErrReentrant indicates GetOr was called for a worker whose slot
	// initializer is still running, either from inside the initializer or
	// from a second goroutine holding the same ID.
	ErrReentrant = slots.ErrReentrant

	// ErrCapacityExceeded indicates a worker ID too large for any bucket.
	ErrCapacityExceeded = slots.ErrCapacityExceeded

	// ErrDrained indicates a store was used after its consuming drain.
	ErrDrained = errors.New("store already drained")

	// ErrMoved indicates a store handle was used after Move transferred it.
	ErrMoved = errors.New("store moved to another owner")
)

// Sentinel errors returned to callers.
var (
	// ErrNoWorker indicates a context carries no worker ID.
	ErrNoWorker = errors.New("context carries no worker id")
)

// TransferError reports values that a drain produced but could not deliver.
type TransferError struct {
	// Store is the name of the drained store.
	Store string
	// Delivered is how many values were sent before the failure.
	Delivered int
	// Dropped is how many drained values were discarded.
	Dropped int
	// Err is the underlying cause, usually a context error.
	Err error
}

// Error implements the error interface.
func (e *TransferError) Error() string {
	return fmt.Sprintf("drain %s: delivered %d, dropped %d: %v", e.Store, e.Delivered, e.Dropped, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TransferError) Unwrap() error {
	return e.Err
}
