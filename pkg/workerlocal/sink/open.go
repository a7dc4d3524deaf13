package sink

import (
	"fmt"
	"log/slog"
)

// Supported drivers for Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// Open creates a sink for the named driver.
//
// An empty path selects an in-memory database for sqlite and badger.
// The logger is only used by the badger driver and may be nil.
func Open(driver, path string, logger *slog.Logger) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		if path == "" {
			path = ":memory:"
		}
		return NewSQLiteStore(path)
	case DriverBadger:
		return NewBadgerStore(BadgerConfig{
			Path:     path,
			InMemory: path == "",
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("unknown sink driver %q", driver)
	}
}
