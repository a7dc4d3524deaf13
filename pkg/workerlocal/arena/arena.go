// Package arena implements a chunked bump allocator for one worker at a time.
//
// # Overview
//
// An Arena hands out values of one type from large chunks. Chunks are never
// moved or resized once allocated, so pointers and slices returned by the
// arena stay valid for as long as the arena is reachable. There is no
// individual free; dropping the arena releases everything at once.
//
//	a := arena.New[int](0)       // default chunk length
//	p := a.Alloc()               // *int, zeroed
//	s := a.AllocSlice(100)       // []int of length 100
//	fmt.Println(a.AllocatedBytes())
//
// A Vec is a growable slice whose backing arrays come from an arena:
//
//	v := arena.NewVec(a)
//	v.Push(1)
//	v.Push(2)
//
// # Thread Safety
//
// Neither type is safe for concurrent use. Both are marked MostlySend: an
// arena and every Vec built on it may be handed to another goroutine once
// the goroutine that used them is done, which makes them suitable values
// for per-worker stores that are drained after the workers are joined.
package arena

import (
	"unsafe"

	"github.com/randalmurphal/workerlocal/pkg/workerlocal"
)

// DefaultChunkLen is the number of values per chunk when none is given.
const DefaultChunkLen = 1024

// Arena allocates values of type T in chunks.
type Arena[T any] struct {
	chunkLen int
	chunks   [][]T
	used     int // values handed out from the last chunk
	total    int // values handed out overall
}

// Compile-time interface checks.
var (
	_ workerlocal.MostlySend = Arena[int]{}
	_ workerlocal.MostlySend = Vec[int]{}
)

// New creates an empty arena whose chunks hold chunkLen values.
// A chunkLen below 1 selects DefaultChunkLen.
func New[T any](chunkLen int) Arena[T] {
	if chunkLen < 1 {
		chunkLen = DefaultChunkLen
	}
	return Arena[T]{chunkLen: chunkLen}
}

// MostlySend implements workerlocal.MostlySend. An arena owns plain memory
// and no goroutine-bound resources; callers serialize access.
func (Arena[T]) MostlySend() {}

// Alloc returns a pointer to a new zero value.
func (a *Arena[T]) Alloc() *T {
	return &a.AllocSlice(1)[0]
}

// AllocSlice returns a zeroed slice of length n. The slice's capacity is
// exactly n, so appending to it never writes into other allocations.
// Requests larger than the chunk length get a chunk of their own.
func (a *Arena[T]) AllocSlice(n int) []T {
	if n <= 0 {
		return nil
	}
	if a.chunkLen < 1 {
		a.chunkLen = DefaultChunkLen
	}

	if len(a.chunks) == 0 || a.used+n > len(a.chunks[len(a.chunks)-1]) {
		size := a.chunkLen
		if n > size {
			size = n
		}
		a.chunks = append(a.chunks, make([]T, size))
		a.used = 0
	}

	last := a.chunks[len(a.chunks)-1]
	out := last[a.used : a.used+n : a.used+n]
	a.used += n
	a.total += n
	return out
}

// Len returns how many values have been allocated.
func (a *Arena[T]) Len() int {
	return a.total
}

// Chunks returns how many chunks the arena holds.
func (a *Arena[T]) Chunks() int {
	return len(a.chunks)
}

// AllocatedBytes returns the bytes handed out to callers.
func (a *Arena[T]) AllocatedBytes() int {
	var zero T
	return a.total * int(unsafe.Sizeof(zero))
}

// CapacityBytes returns the bytes reserved by all chunks.
func (a *Arena[T]) CapacityBytes() int {
	var zero T
	n := 0
	for _, c := range a.chunks {
		n += len(c)
	}
	return n * int(unsafe.Sizeof(zero))
}
