// Package sink persists values drained from per-worker stores.
//
// A drain produces one value per worker. Persist stores them under a run ID,
// one record per value, and Restore reads them back in the same order:
//
//	totals := store.Drain()
//	if err := sink.Persist(ctx, s, runID, totals); err != nil {
//	    return err
//	}
//	later, err := sink.Restore[int](s, runID)
//
// Three backends are provided: MemoryStore for tests, SQLiteStore
// (modernc.org/sqlite) for single-process use, and BadgerStore
// (dgraph-io/badger) for an embedded key-value store.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store persists drained values.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores the value at index for a run.
	// Overwrites if a record for (runID, index) already exists.
	Save(runID string, index int, data []byte) error

	// Load returns every record of a run ordered by index.
	// Returns ErrNotFound if the run has no records.
	Load(runID string) ([]Record, error)

	// Runs returns the IDs of all stored runs in ascending order.
	Runs() ([]string, error)

	// DeleteRun removes all records of a run.
	// Returns nil if the run has no records.
	DeleteRun(runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Record is one persisted value.
type Record struct {
	RunID     string
	Index     int
	Timestamp time.Time
	Data      []byte
}

// Sentinel errors for sink operations.
var (
	// ErrNotFound indicates a run has no records.
	ErrNotFound = errors.New("run not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("sink store closed")
)

// Persist JSON-encodes values and saves them under runID, value i at index i.
func Persist[T any](ctx context.Context, s Store, runID string, values []T) error {
	for i, v := range values {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("persist %s: %w", runID, err)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("persist %s: encode value %d: %w", runID, i, err)
		}
		if err := s.Save(runID, i, data); err != nil {
			return fmt.Errorf("persist %s: %w", runID, err)
		}
	}
	return nil
}

// Restore loads and decodes the values saved under runID, in index order.
func Restore[T any](s Store, runID string) ([]T, error) {
	records, err := s.Load(runID)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", runID, err)
	}
	values := make([]T, len(records))
	for i, r := range records {
		if err := json.Unmarshal(r.Data, &values[i]); err != nil {
			return nil, fmt.Errorf("restore %s: decode value %d: %w", runID, r.Index, err)
		}
	}
	return values, nil
}
