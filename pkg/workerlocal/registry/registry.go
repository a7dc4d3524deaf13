package registry

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
)

// ID identifies one worker. IDs are dense and start at zero.
type ID uint64

// String returns the decimal form of the ID.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Allocator assigns IDs. The zero value is ready to use.
type Allocator struct {
	next atomic.Uint64

	mu     sync.RWMutex
	labels map[ID]string
}

// NewAllocator creates an allocator whose first ID is zero.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Next allocates a fresh ID. It never returns the same ID twice.
func (a *Allocator) Next() ID {
	return ID(a.next.Add(1) - 1)
}

// NextLabeled allocates a fresh ID and records label for it.
func (a *Allocator) NextLabeled(label string) ID {
	id := a.Next()
	a.SetLabel(id, label)
	return id
}

// SetLabel records or replaces the label of id.
func (a *Allocator) SetLabel(id ID, label string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.labels == nil {
		a.labels = make(map[ID]string)
	}
	a.labels[id] = label
}

// Label returns the label recorded for id, or the decimal ID if none was set.
func (a *Allocator) Label(id ID) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if l, ok := a.labels[id]; ok {
		return l
	}
	return id.String()
}

// Allocated returns how many IDs have been handed out.
func (a *Allocator) Allocated() int {
	return int(a.next.Load())
}

var defaultAllocator = NewAllocator()

// Default returns the process-wide allocator.
func Default() *Allocator {
	return defaultAllocator
}

// Next allocates an ID from the process-wide allocator.
func Next() ID {
	return defaultAllocator.Next()
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the ID carried by ctx.
func FromContext(ctx context.Context) (ID, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(contextKey{}).(ID)
	return id, ok
}

// Ensure returns the ID carried by ctx. If there is none, it allocates one
// from a, attaches it, and returns the derived context. Calling Ensure again
// on the returned context yields the same ID.
func Ensure(ctx context.Context, a *Allocator) (context.Context, ID) {
	if id, ok := FromContext(ctx); ok {
		return ctx, id
	}
	if a == nil {
		a = defaultAllocator
	}
	id := a.Next()
	return NewContext(ctx, id), id
}
