// Package registry hands out dense worker identities.
//
// A worker is any goroutine that owns one slot in a per-worker store. Go has
// no goroutine identity, so workers are given an ID explicitly and carry it
// for their whole life, either as a value or attached to a context.
//
// # Basic Usage
//
// Allocate IDs from the process-wide allocator:
//
//	id := registry.Next()
//	ctx = registry.NewContext(ctx, id)
//
//	// Later, deep inside the worker
//	id, ok := registry.FromContext(ctx)
//
// IDs are small and dense: the N-th allocation returns N-1. Per-worker
// stores size their slot tables by ID, so memory is proportional to the
// number of workers observed rather than to any native identifier.
//
// # Reuse
//
// IDs are never reused. An allocator only counts upward, so a slot indexed
// by an ID can never be inherited by an unrelated worker. Long-lived pools
// allocate their IDs once and keep them across scopes.
//
// # Labels
//
// An allocator can attach a human-readable label to an ID for logs:
//
//	a := registry.NewAllocator()
//	id := a.NextLabeled("ingest/worker-3")
//	a.Label(id) // "ingest/worker-3"
//
// # Thread Safety
//
// All Allocator methods are safe for concurrent use. Next is a single atomic
// add; labels live in a map guarded by sync.RWMutex.
package registry
