package sink

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory sink for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[int]Record // runID -> index -> record
	closed bool
}

// NewMemoryStore creates a new in-memory sink.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[int]Record),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(runID string, index int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if m.data[runID] == nil {
		m.data[runID] = make(map[int]Record)
	}

	// Copy data to avoid retaining caller's slice
	stored := make([]byte, len(data))
	copy(stored, data)

	m.data[runID][index] = Record{
		RunID:     runID,
		Index:     index,
		Timestamp: time.Now().UTC(),
		Data:      stored,
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(runID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	run, ok := m.data[runID]
	if !ok || len(run) == 0 {
		return nil, ErrNotFound
	}

	records := make([]Record, 0, len(run))
	for _, r := range run {
		r.Data = append([]byte(nil), r.Data...)
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Index < records[j].Index
	})
	return records, nil
}

// Runs implements Store.
func (m *MemoryStore) Runs() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	runs := make([]string, 0, len(m.data))
	for runID := range m.data {
		runs = append(runs, runID)
	}
	sort.Strings(runs)
	return runs, nil
}

// DeleteRun implements Store.
func (m *MemoryStore) DeleteRun(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.data, runID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the total number of records across all runs.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, run := range m.data {
		count += len(run)
	}
	return count
}
