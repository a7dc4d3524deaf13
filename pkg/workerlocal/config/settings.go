package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/randalmurphal/workerlocal/pkg/workerlocal/sink"
	"github.com/randalmurphal/workerlocal/pkg/workerlocal/slots"
)

// ErrInvalidSettings is returned when a settings value is out of range.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings configures a workerlocal run.
type Settings struct {
	// Workers is the pool size. Zero means GOMAXPROCS.
	Workers int
	// InitialCapacity is the slot count of a store's first bucket.
	InitialCapacity int
	// QueueDepth buffers the pool's task queue. Zero is unbuffered.
	QueueDepth int
	// FailFast cancels a scope on its first task error.
	FailFast bool
	// Metrics enables OpenTelemetry metrics.
	Metrics bool
	// Tracing enables OpenTelemetry spans.
	Tracing bool
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// DrainTimeout bounds how long a drain may block on its consumer.
	DrainTimeout time.Duration
	// Sink selects where drained values are persisted.
	Sink SinkSettings
}

// SinkSettings selects a sink backend.
type SinkSettings struct {
	Driver string
	Path   string
}

// Defaults returns the settings used when no file is given.
func Defaults() Settings {
	return Settings{
		Workers:         0,
		InitialCapacity: slots.DefaultInitialCapacity,
		QueueDepth:      0,
		FailFast:        false,
		Metrics:         false,
		Tracing:         false,
		LogLevel:        "info",
		DrainTimeout:    30 * time.Second,
		Sink:            SinkSettings{Driver: sink.DriverMemory},
	}
}

// FromConfig overlays cfg onto Defaults and validates the result.
func FromConfig(cfg Config) (Settings, error) {
	d := Defaults()
	sinkCfg := cfg.Section("sink")

	s := Settings{
		Workers:         cfg.Int("workers", d.Workers),
		InitialCapacity: cfg.Int("initial_capacity", d.InitialCapacity),
		QueueDepth:      cfg.Int("queue_depth", d.QueueDepth),
		FailFast:        cfg.Bool("fail_fast", d.FailFast),
		Metrics:         cfg.Bool("metrics", d.Metrics),
		Tracing:         cfg.Bool("tracing", d.Tracing),
		LogLevel:        strings.ToLower(cfg.String("log_level", d.LogLevel)),
		DrainTimeout:    cfg.Duration("drain_timeout", d.DrainTimeout),
		Sink: SinkSettings{
			Driver: sinkCfg.String("driver", d.Sink.Driver),
			Path:   sinkCfg.String("path", d.Sink.Path),
		},
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate reports the first out-of-range value, wrapping ErrInvalidSettings.
func (s Settings) Validate() error {
	switch {
	case s.Workers < 0:
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidSettings, s.Workers)
	case s.InitialCapacity < 1:
		return fmt.Errorf("%w: initial_capacity must be >= 1, got %d", ErrInvalidSettings, s.InitialCapacity)
	case s.QueueDepth < 0:
		return fmt.Errorf("%w: queue_depth must be >= 0, got %d", ErrInvalidSettings, s.QueueDepth)
	case s.DrainTimeout < 0:
		return fmt.Errorf("%w: drain_timeout must be >= 0, got %s", ErrInvalidSettings, s.DrainTimeout)
	}

	if _, err := parseLevel(s.LogLevel); err != nil {
		return err
	}

	switch s.Sink.Driver {
	case sink.DriverMemory, sink.DriverSQLite, sink.DriverBadger:
	default:
		return fmt.Errorf("%w: unknown sink driver %q", ErrInvalidSettings, s.Sink.Driver)
	}
	return nil
}

// SlogLevel returns LogLevel as a slog.Level, defaulting to Info.
func (s Settings) SlogLevel() slog.Level {
	level, err := parseLevel(s.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: unknown log_level %q", ErrInvalidSettings, name)
	}
}
