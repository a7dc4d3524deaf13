package pool

import "context"

// ForEach runs fn for every index in 0..n-1 on p's workers and waits for all
// of them. Each index runs exactly once unless the scope is cancelled.
func ForEach(ctx context.Context, p *Pool, n int, fn func(w Worker, i int) error) error {
	return p.Scoped(ctx, func(s *Scope) {
		for i := 0; i < n; i++ {
			s.Execute(func(w Worker) error {
				return fn(w, i)
			})
		}
	})
}

// Map runs fn for every index in 0..n-1 and collects the results in index
// order. On failure the returned slice holds the results of the indexes that
// succeeded and zero values elsewhere.
func Map[R any](ctx context.Context, p *Pool, n int, fn func(w Worker, i int) (R, error)) ([]R, error) {
	out := make([]R, n)
	err := ForEach(ctx, p, n, func(w Worker, i int) error {
		r, err := fn(w, i)
		if err != nil {
			return err
		}
		out[i] = r
		return nil
	})
	return out, err
}
