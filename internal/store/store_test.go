// ABOUTME: Behavior tests shared by every KV implementation
// ABOUTME: Runs the same get/set/remove/CAS/change-event checks against SQLiteStore and MockStore

package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T, opts Options) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath, opts)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// forEachStore runs fn against each KV implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, kv KV)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, setupTestStore(t, Options{}))
	})
	t.Run("mock", func(t *testing.T) {
		m := NewMockStore("")
		t.Cleanup(func() { m.Close() })
		fn(t, m)
	})
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func nextChange(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c, ok := <-ch:
		require.True(t, ok, "change channel closed")
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
		return Change{}
	}
}

func assertNoChange(t *testing.T, ch <-chan Change, wait time.Duration) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected change: %+v", c)
	case <-time.After(wait):
	}
}

func TestKV_GetMissingKeys(t *testing.T) {
	forEachStore(t, func(t *testing.T, kv KV) {
		items, err := kv.Get(context.Background(), "missing", "also-missing")
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestKV_SetAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, kv KV) {
		ctx := context.Background()

		err := kv.Set(ctx, map[string]json.RawMessage{
			"work": raw(t, []string{"https://a.example", "https://c.example"}),
			"home": raw(t, []string{"https://h.example"}),
		})
		require.NoError(t, err)

		items, err := kv.Get(ctx, "work", "home", "nope")
		require.NoError(t, err)
		require.Len(t, items, 2)

		var urls []string
		require.NoError(t, json.Unmarshal(items["work"].Value, &urls))
		assert.Equal(t, []string{"https://a.example", "https://c.example"}, urls)
		assert.Equal(t, int64(1), items["work"].Version)
	})
}

func TestKV_SetOverwritesAndBumpsVersion(t *testing.T) {
	forEachStore(t, func(t *testing.T, kv KV) {
		ctx := context.Background()

		require.NoError(t, kv.Set(ctx, map[string]json.RawMessage{"k": raw(t, "first")}))
		require.NoError(t, kv.Set(ctx, map[string]json.RawMessage{"k": raw(t, "second")}))

		items, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.JSONEq(t, `"second"`, string(items["k"].Value))
		assert.Equal(t, int64(2), items["k"].Version)
	})
}

func TestKV_Remove(t *testing.T) {
	forEachStore(t, func(t *testing.T, kv KV) {
		ctx := context.Background()

		require.NoError(t, kv.Set(ctx, map[string]json.RawMessage{"k": raw(t, 1)}))
		require.NoError(t, kv.Remove(ctx, "k"))
		require.NoError(t, kv.Remove(ctx, "never-existed"))

		items, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestKV_CompareAndSwap(t *testing.T) {
	forEachStore(t, func(t *testing.T, kv KV) {
		ctx := context.Background()

		v, err := kv.CompareAndSwap(ctx, "reg", 0, raw(t, []string{"a"}))
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)

		_, err = kv.CompareAndSwap(ctx, "reg", 0, raw(t, []string{"b"}))
		assert.ErrorIs(t, err, ErrVersionConflict, "create must fail when key exists")

		v, err = kv.CompareAndSwap(ctx, "reg", 1, raw(t, []string{"a", "b"}))
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)

		_, err = kv.CompareAndSwap(ctx, "reg", 1, raw(t, []string{"stale"}))
		assert.ErrorIs(t, err, ErrVersionConflict, "stale version must fail")

		_, err = kv.CompareAndSwap(ctx, "absent", 3, raw(t, 1))
		assert.ErrorIs(t, err, ErrVersionConflict, "update of missing key must fail")

		items, err := kv.Get(ctx, "reg")
		require.NoError(t, err)
		assert.JSONEq(t, `["a","b"]`, string(items["reg"].Value))
	})
}

func TestKV_CompareAndSwapAfterRemoveStartsOver(t *testing.T) {
	forEachStore(t, func(t *testing.T, kv KV) {
		ctx := context.Background()

		require.NoError(t, kv.Set(ctx, map[string]json.RawMessage{"k": raw(t, 1)}))
		require.NoError(t, kv.Remove(ctx, "k"))

		v, err := kv.CompareAndSwap(ctx, "k", 0, raw(t, 2))
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
	})
}

func TestKV_ConcurrentCompareAndSwapOneWinner(t *testing.T) {
	forEachStore(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		require.NoError(t, kv.Set(ctx, map[string]json.RawMessage{"k": raw(t, 0)}))

		var mu sync.Mutex
		wins := 0
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := kv.CompareAndSwap(ctx, "k", 1, raw(t, i)); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
	})
}

func TestKV_ChangeEvents(t *testing.T) {
	forEachStore(t, func(t *testing.T, kv KV) {
		ctx := testContext(t)
		ch, _ := kv.Subscribe(ctx)

		require.NoError(t, kv.Set(ctx, map[string]json.RawMessage{
			"b": raw(t, 1),
			"a": raw(t, 2),
		}))
		c := nextChange(t, ch)
		assert.Equal(t, DefaultNamespace, c.Namespace)
		assert.Equal(t, []string{"a", "b"}, c.Keys)
		assert.NotEmpty(t, c.ID)

		_, err := kv.CompareAndSwap(ctx, "a", 1, raw(t, 3))
		require.NoError(t, err)
		c = nextChange(t, ch)
		assert.Equal(t, []string{"a"}, c.Keys)

		require.NoError(t, kv.Remove(ctx, "a", "missing"))
		c = nextChange(t, ch)
		assert.Equal(t, []string{"a"}, c.Keys)
	})
}

func TestKV_NoChangeForNoopRemoveOrFailedCAS(t *testing.T) {
	forEachStore(t, func(t *testing.T, kv KV) {
		ctx := testContext(t)
		ch, _ := kv.Subscribe(ctx)

		require.NoError(t, kv.Remove(ctx, "missing"))
		_, err := kv.CompareAndSwap(ctx, "missing", 4, raw(t, 1))
		require.ErrorIs(t, err, ErrVersionConflict)

		assertNoChange(t, ch, 100*time.Millisecond)
	})
}

func TestKV_ClosedStore(t *testing.T) {
	forEachStore(t, func(t *testing.T, kv KV) {
		require.NoError(t, kv.Close())

		_, err := kv.Get(context.Background(), "k")
		assert.ErrorIs(t, err, ErrClosed)

		ch, _ := kv.Subscribe(context.Background())
		_, ok := <-ch
		assert.False(t, ok, "subscribing after close yields a closed channel")
	})
}

func TestChange_HasKey(t *testing.T) {
	c := Change{Keys: []string{"tabsaver.identifiers", "work"}}
	assert.True(t, c.HasKey("work"))
	assert.False(t, c.HasKey("home"))
}
