package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/randalmurphal/workerlocal/pkg/workerlocal"
	"github.com/randalmurphal/workerlocal/pkg/workerlocal/config"
	"github.com/randalmurphal/workerlocal/pkg/workerlocal/pool"
	"github.com/randalmurphal/workerlocal/pkg/workerlocal/sink"
)

// partial is one worker's share of a reduction.
type partial struct {
	Worker uint64 `json:"worker"`
	Count  int    `json:"count"`
	Sum    int64  `json:"sum"`
	Min    int    `json:"min"`
	Max    int    `json:"max"`
}

// MostlySend: plain data, owned by one worker until drained.
func (partial) MostlySend() {}

type runReport struct {
	RunID    string
	Partials []partial
	Count    int
	Sum      int64
}

func newReport(runID string, partials []partial) runReport {
	r := runReport{RunID: runID, Partials: partials}
	for _, p := range partials {
		r.Count += p.Count
		r.Sum += p.Sum
	}
	return r
}

// runWorkload sums 0..items-1 on a pool, one partial per worker, then drains
// the partials to a collector goroutine and persists them under a new run ID.
func runWorkload(ctx context.Context, s config.Settings, items int, store sink.Store, logger *slog.Logger) (runReport, error) {
	p := pool.New(s.Workers,
		pool.WithName("workerlocal"),
		pool.WithLogger(logger),
		pool.WithMetrics(s.Metrics),
		pool.WithTracing(s.Tracing),
		pool.WithFailFast(s.FailFast),
		pool.WithQueueDepth(s.QueueDepth),
	)
	partials := workerlocal.New[partial](
		workerlocal.WithName("partials"),
		workerlocal.WithInitialCapacity(s.InitialCapacity),
		workerlocal.WithLogger(logger),
		workerlocal.WithMetrics(s.Metrics),
		workerlocal.WithTracing(s.Tracing),
	)

	err := pool.ForEach(ctx, p, items, func(w pool.Worker, i int) error {
		v := partials.GetOr(w.ID(), func() partial {
			return partial{Worker: uint64(w.ID()), Min: i, Max: i}
		})
		v.Count++
		v.Sum += int64(i)
		v.Min = min(v.Min, i)
		v.Max = max(v.Max, i)
		return nil
	})
	if err != nil {
		_ = partials.Discard()
		return runReport{}, fmt.Errorf("reduce: %w", err)
	}

	drainCtx := ctx
	if s.DrainTimeout > 0 {
		var cancel context.CancelFunc
		drainCtx, cancel = context.WithTimeout(ctx, s.DrainTimeout)
		defer cancel()
	}

	out := make(chan partial)
	collected := make(chan []partial, 1)
	go func() {
		var all []partial
		for v := range out {
			all = append(all, v)
		}
		collected <- all
	}()
	drainErr := workerlocal.DrainTo(drainCtx, partials, out)
	close(out)
	all := <-collected
	if drainErr != nil {
		return runReport{}, drainErr
	}

	runID := "run-" + uuid.NewString()
	if err := sink.Persist(ctx, store, runID, all); err != nil {
		return runReport{}, err
	}
	logger.Info("run persisted",
		slog.String("run_id", runID),
		slog.Int("partials", len(all)),
		slog.String("sink", s.Sink.Driver),
	)
	return newReport(runID, all), nil
}
