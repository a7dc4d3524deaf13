package arena

// Vec is a growable slice backed by an Arena. Growing allocates a new,
// larger array from the arena and copies; the old array stays in the arena
// until the arena is dropped.
type Vec[T any] struct {
	arena *Arena[T]
	items []T
}

// NewVec creates an empty Vec that allocates from a.
func NewVec[T any](a *Arena[T]) Vec[T] {
	return Vec[T]{arena: a}
}

// MostlySend implements workerlocal.MostlySend. A Vec is only ever touched
// together with its arena, by one goroutine at a time.
func (Vec[T]) MostlySend() {}

// Push appends v.
func (v *Vec[T]) Push(x T) {
	if len(v.items) == cap(v.items) {
		newCap := 2 * cap(v.items)
		if newCap == 0 {
			newCap = 4
		}
		grown := v.arena.AllocSlice(newCap)[:len(v.items)]
		copy(grown, v.items)
		v.items = grown
	}
	v.items = append(v.items, x)
}

// Len returns the number of items.
func (v *Vec[T]) Len() int {
	return len(v.items)
}

// Items returns the items. The slice aliases arena memory.
func (v *Vec[T]) Items() []T {
	return v.items
}

// Arena returns the arena the Vec allocates from.
func (v *Vec[T]) Arena() *Arena[T] {
	return v.arena
}
