// Command workerlocal runs a parallel reduction over per-worker stores and
// persists the drained partial results.
//
// Usage:
//
//	workerlocal run --items 10000 --workers 8 --sink sqlite --sink-path ./runs.db
//	workerlocal runs --sink sqlite --sink-path ./runs.db
//	workerlocal runs --sink sqlite --sink-path ./runs.db --run run-1a2b...
//	workerlocal version
package main

import (
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
