// Package observability provides logging, metrics, and tracing for
// per-worker stores and the worker pool.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every logging helper accepts a nil logger.
package observability

import (
	"log/slog"
	"time"
)

// WorkerFields identifies the worker a log line comes from.
type WorkerFields struct {
	Pool  string
	RunID string
	Index int
	ID    uint64
	Label string
}

// EnrichLogger adds worker context to a logger.
// Returns a new logger with pool, run_id, worker, worker_id, and
// worker_label fields. An empty Label is omitted.
//
// Example:
//
//	enriched := EnrichLogger(logger, WorkerFields{
//	    Pool: "ingest", RunID: "scope-1a2b", Index: 3, ID: 17, Label: "ingest/worker-3",
//	})
//	enriched.Info("doing work")
func EnrichLogger(logger *slog.Logger, w WorkerFields) *slog.Logger {
	if logger == nil {
		return nil
	}
	attrs := []any{
		slog.String("pool", w.Pool),
		slog.String("run_id", w.RunID),
		slog.Int("worker", w.Index),
		slog.Uint64("worker_id", w.ID),
	}
	if w.Label != "" {
		attrs = append(attrs, slog.String("worker_label", w.Label))
	}
	return logger.With(attrs...)
}

// LogScopeStart logs the start of a pool scope.
func LogScopeStart(logger *slog.Logger, pool, runID string, workers int) {
	if logger == nil {
		return
	}
	logger.Info("scope starting",
		slog.String("pool", pool),
		slog.String("run_id", runID),
		slog.Int("workers", workers),
	)
}

// LogScopeComplete logs a scope whose tasks all succeeded.
func LogScopeComplete(logger *slog.Logger, pool, runID string, tasks int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("scope completed",
		slog.String("pool", pool),
		slog.String("run_id", runID),
		slog.Int("tasks", tasks),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogScopeError logs a scope in which at least one task failed.
func LogScopeError(logger *slog.Logger, pool, runID string, err error, failed int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("scope failed",
		slog.String("pool", pool),
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Int("failed_tasks", failed),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogTaskPanic logs a task that panicked. The worker keeps running.
func LogTaskPanic(logger *slog.Logger, worker int, value any) {
	if logger == nil {
		return
	}
	logger.Warn("task panicked",
		slog.Int("worker", worker),
		slog.Any("panic", value),
	)
}

// LogGrowth logs a new bucket being published in a store's slot table.
func LogGrowth(logger *slog.Logger, store string, bucket, capacity int) {
	if logger == nil {
		return
	}
	logger.Debug("slot table grew",
		slog.String("store", store),
		slog.Int("bucket", bucket),
		slog.Int("capacity", capacity),
	)
}

// LogDrain logs a consuming drain.
func LogDrain(logger *slog.Logger, store string, values int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("store drained",
		slog.String("store", store),
		slog.Int("values", values),
		slog.Float64("duration_ms", durationMs),
	)
}

// TimedOperation starts a timer for a drain or scope.
// The returned function reports the time elapsed since the call.
//
// Example:
//
//	elapsed := TimedOperation()
//	// ... drain ...
//	LogDrain(logger, "totals", n, Milliseconds(elapsed()))
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// Milliseconds converts d to fractional milliseconds, the unit of every
// duration field and latency histogram in this package.
func Milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
