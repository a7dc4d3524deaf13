package sink_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/randalmurphal/workerlocal/pkg/workerlocal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a fresh instance of every sink implementation.
func backends(t *testing.T) map[string]sink.Store {
	t.Helper()

	sqlite, err := sink.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	bdg, err := sink.NewBadgerStore(sink.BadgerConfig{InMemory: true})
	require.NoError(t, err)

	stores := map[string]sink.Store{
		"memory": sink.NewMemoryStore(),
		"sqlite": sqlite,
		"badger": bdg,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStore_SaveLoad(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// Saved out of order on purpose.
			require.NoError(t, store.Save("run-1", 2, []byte("c")))
			require.NoError(t, store.Save("run-1", 0, []byte("a")))
			require.NoError(t, store.Save("run-1", 1, []byte("b")))
			require.NoError(t, store.Save("run-2", 0, []byte("x")))

			records, err := store.Load("run-1")
			require.NoError(t, err)
			require.Len(t, records, 3)
			for i, r := range records {
				assert.Equal(t, "run-1", r.RunID)
				assert.Equal(t, i, r.Index)
				assert.Equal(t, []byte{byte('a' + i)}, r.Data)
				assert.False(t, r.Timestamp.IsZero())
			}
		})
	}
}

func TestStore_Overwrite(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save("run-1", 0, []byte("old")))
			require.NoError(t, store.Save("run-1", 0, []byte("new")))

			records, err := store.Load("run-1")
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, []byte("new"), records[0].Data)
		})
	}
}

func TestStore_LoadMissing(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load("nope")
			assert.ErrorIs(t, err, sink.ErrNotFound)
		})
	}
}

func TestStore_NestedRunIDs(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save("a", 0, []byte("outer")))
			require.NoError(t, store.Save("a/b", 0, []byte("inner")))

			records, err := store.Load("a")
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, []byte("outer"), records[0].Data)

			require.NoError(t, store.DeleteRun("a"))
			records, err = store.Load("a/b")
			require.NoError(t, err)
			assert.Len(t, records, 1)
		})
	}
}

func TestStore_RunsAndDelete(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			runs, err := store.Runs()
			require.NoError(t, err)
			assert.Empty(t, runs)

			require.NoError(t, store.Save("run-b", 0, []byte("1")))
			require.NoError(t, store.Save("run-a", 0, []byte("1")))
			require.NoError(t, store.Save("run-a", 1, []byte("2")))

			runs, err = store.Runs()
			require.NoError(t, err)
			assert.Equal(t, []string{"run-a", "run-b"}, runs)

			require.NoError(t, store.DeleteRun("run-a"))
			require.NoError(t, store.DeleteRun("never-existed"))

			runs, err = store.Runs()
			require.NoError(t, err)
			assert.Equal(t, []string{"run-b"}, runs)

			_, err = store.Load("run-a")
			assert.ErrorIs(t, err, sink.ErrNotFound)
		})
	}
}

func TestStore_Closed(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Close())
			assert.NoError(t, store.Close(), "close is idempotent")

			assert.ErrorIs(t, store.Save("run-1", 0, nil), sink.ErrStoreClosed)
			_, err := store.Load("run-1")
			assert.ErrorIs(t, err, sink.ErrStoreClosed)
			_, err = store.Runs()
			assert.ErrorIs(t, err, sink.ErrStoreClosed)
			assert.ErrorIs(t, store.DeleteRun("run-1"), sink.ErrStoreClosed)
		})
	}
}

func TestStore_Concurrent(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			const numGoroutines = 20
			const numOps = 10

			var wg sync.WaitGroup
			wg.Add(numGoroutines)
			for g := 0; g < numGoroutines; g++ {
				go func(g int) {
					defer wg.Done()
					runID := fmt.Sprintf("run-%d", g)
					for i := 0; i < numOps; i++ {
						assert.NoError(t, store.Save(runID, i, []byte("v")))
					}
				}(g)
			}
			wg.Wait()

			runs, err := store.Runs()
			require.NoError(t, err)
			assert.Len(t, runs, numGoroutines)
			for _, runID := range runs {
				records, err := store.Load(runID)
				require.NoError(t, err)
				assert.Len(t, records, numOps)
			}
		})
	}
}

func TestPersistRestore(t *testing.T) {
	type total struct {
		Worker int `json:"worker"`
		Sum    int `json:"sum"`
	}

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			values := []total{{0, 10}, {1, 20}, {2, 30}}
			require.NoError(t, sink.Persist(context.Background(), store, "run-1", values))

			restored, err := sink.Restore[total](store, "run-1")
			require.NoError(t, err)
			assert.Equal(t, values, restored)
		})
	}
}

func TestPersist_CancelledContext(t *testing.T) {
	store := sink.NewMemoryStore()
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sink.Persist(ctx, store, "run-1", []int{1, 2, 3})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}

func TestPersist_EncodeError(t *testing.T) {
	store := sink.NewMemoryStore()
	defer store.Close()

	err := sink.Persist(context.Background(), store, "run-1", []any{1, make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode value 1")
	assert.Equal(t, 1, store.Len())
}

func TestRestore_Errors(t *testing.T) {
	store := sink.NewMemoryStore()
	defer store.Close()

	_, err := sink.Restore[int](store, "missing")
	assert.ErrorIs(t, err, sink.ErrNotFound)

	require.NoError(t, store.Save("run-1", 0, []byte("not json")))
	_, err = sink.Restore[int](store, "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode value 0")
}

func TestOpen(t *testing.T) {
	for _, driver := range []string{"", sink.DriverMemory, sink.DriverSQLite, sink.DriverBadger} {
		t.Run("driver="+driver, func(t *testing.T) {
			store, err := sink.Open(driver, "", nil)
			require.NoError(t, err)
			defer store.Close()

			require.NoError(t, store.Save("run-1", 0, []byte("ok")))
			records, err := store.Load("run-1")
			require.NoError(t, err)
			assert.Len(t, records, 1)
		})
	}

	_, err := sink.Open("postgres", "", nil)
	assert.Error(t, err)
}
