package workerlocal

// MostlySend marks a type as safe to hand to another goroutine once it is at
// rest, even though it is not safe for concurrent use.
//
// Implementing MostlySend is an audited promise by the type's author that:
//
//  1. The type holds nothing tied to the goroutine or OS thread that created
//     it. It behaves the same when read, mutated, or released from a
//     different goroutine, provided accesses do not overlap.
//  2. Any mutable state reachable through the type is only ever touched by
//     one goroutine at a time, never by two concurrently.
//
// The marker only gates handing a whole store, or the values drained from
// it, to another goroutine (Move and DrainTo). It grants no right to share
// one worker's value between goroutines while workers are running; that
// stays forbidden regardless.
//
// Implement the method explicitly on the type. Nothing in this module
// implements it on your behalf, so every marked type is visible in review:
//
//	type scratch struct{ buf []byte }
//
//	// MostlySend: buf is owned by the current worker and never shared.
//	func (scratch) MostlySend() {}
type MostlySend interface {
	MostlySend()
}

// FullySend wraps plain owned data: values with no references shared with
// any other goroutine. Wrapping a value is the author's assertion that this
// holds.
type FullySend[T any] struct {
	Value T
}

// MostlySend implements MostlySend.
func (FullySend[T]) MostlySend() {}

// Send wraps v in FullySend.
func Send[T any](v T) FullySend[T] {
	return FullySend[T]{Value: v}
}
