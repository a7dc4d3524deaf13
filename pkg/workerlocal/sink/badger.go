package sink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "run/"

// BadgerConfig holds configuration for a BadgerStore.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string

	// InMemory keeps all data in memory. Useful for testing.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's internal logs.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *slog.Logger
}

// BadgerStore persists drained values to an embedded BadgerDB.
//
// Keys are "run/<runID>/<index>" with the index zero-padded so that a prefix
// scan returns a run's records in index order. Values are the UnixNano save
// time (8 bytes, big-endian) followed by the data.
type BadgerStore struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// NewBadgerStore opens a BadgerDB-backed sink.
// Path is required unless InMemory is true; the directory is created if missing.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent badger sink")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerRunPrefix(runID string) []byte {
	return []byte(badgerKeyPrefix + runID + "/")
}

func badgerKey(runID string, index int) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", badgerKeyPrefix, runID, index))
}

// parseBadgerKey splits a key into run ID and index.
// The run ID may itself contain '/', so the index is taken after the last one.
func parseBadgerKey(key []byte) (string, int, error) {
	rest := strings.TrimPrefix(string(key), badgerKeyPrefix)
	cut := strings.LastIndexByte(rest, '/')
	if cut < 0 {
		return "", 0, fmt.Errorf("malformed key %q", key)
	}
	index, err := strconv.Atoi(rest[cut+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed key %q: %w", key, err)
	}
	return rest[:cut], index, nil
}

// Save implements Store.
func (b *BadgerStore) Save(runID string, index int, data []byte) error {
	if index < 0 {
		return fmt.Errorf("save value: negative index %d", index)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrStoreClosed
	}

	value := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(value, uint64(time.Now().UTC().UnixNano()))
	copy(value[8:], data)

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(runID, index), value)
	})
	if err != nil {
		return fmt.Errorf("save value: %w", err)
	}
	return nil
}

// Load implements Store.
func (b *BadgerStore) Load(runID string) ([]Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrStoreClosed
	}

	prefix := badgerRunPrefix(runID)
	var records []Record
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			keyRun, index, err := parseBadgerKey(item.Key())
			if err != nil {
				return err
			}
			// "run/a/" is also a prefix of run "a/b"'s keys.
			if keyRun != runID {
				continue
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read value: %w", err)
			}
			if len(value) < 8 {
				return fmt.Errorf("malformed value for key %q", item.Key())
			}
			records = append(records, Record{
				RunID:     runID,
				Index:     index,
				Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(value))).UTC(),
				Data:      value[8:],
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load values: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// Runs implements Store.
func (b *BadgerStore) Runs() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrStoreClosed
	}

	seen := make(map[string]struct{})
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			runID, _, err := parseBadgerKey(it.Item().Key())
			if err != nil {
				return err
			}
			seen[runID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]string, 0, len(seen))
	for runID := range seen {
		runs = append(runs, runID)
	}
	sort.Strings(runs)
	return runs, nil
}

// DeleteRun implements Store.
func (b *BadgerStore) DeleteRun(runID string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrStoreClosed
	}

	prefix := badgerRunPrefix(runID)
	err := b.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if keyRun, _, err := parseBadgerKey(key); err == nil && keyRun == runID {
				keys = append(keys, key)
			}
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// Close implements Store.
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}
