/*
Package config loads workerlocal settings from YAML or JSON.

# Overview

Config wraps a map[string]any and provides typed accessors that fall back to
a default when a key is missing or holds the wrong type. Settings is the
typed view used by the command line tool: pool size, table geometry, sink
backend and observability switches.

# Basic Usage

	settings, err := config.Load("workerlocal.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	p := pool.New(settings.Workers,
	    pool.WithQueueDepth(settings.QueueDepth),
	    pool.WithFailFast(settings.FailFast),
	)

A file only needs the keys it overrides:

	workers: 8
	initial_capacity: 64
	log_level: debug
	drain_timeout: 5s
	sink:
	  driver: sqlite
	  path: ./results.db

# Type Coercion

JSON numbers decode as float64 and YAML integers as int; Int accepts both
but rejects floats with a fractional part. Duration accepts a
time.ParseDuration string or a number of seconds.

# Thread Safety

Config and Settings are values and safe for concurrent reads.
*/
package config
