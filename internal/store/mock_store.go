// ABOUTME: Mock KV implementation for testing
// ABOUTME: Allows tests to run without SQLite; matches SQLiteStore versioning and change events

package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory KV implementation for testing.
type MockStore struct {
	mu          sync.Mutex
	namespace   string
	items       map[string]Item
	err         error // returned by every operation when set
	broadcaster *Broadcaster
	closed      bool
}

// NewMockStore creates a new MockStore bound to namespace
// (DefaultNamespace when empty).
func NewMockStore(namespace string) *MockStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &MockStore{
		namespace:   namespace,
		items:       make(map[string]Item),
		broadcaster: NewBroadcaster(nil),
	}
}

// FailWith makes every later operation return err. Pass nil to clear.
func (m *MockStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Namespace returns the store's namespace.
func (m *MockStore) Namespace() string {
	return m.namespace
}

// Get returns copies of the stored items.
func (m *MockStore) Get(ctx context.Context, keys ...string) (map[string]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLocked(); err != nil {
		return nil, err
	}

	result := make(map[string]Item, len(keys))
	for _, k := range keys {
		if item, ok := m.items[k]; ok {
			result[k] = Item{Value: cloneRaw(item.Value), Version: item.Version}
		}
	}
	return result, nil
}

// Set writes all values and publishes one change.
func (m *MockStore) Set(ctx context.Context, values map[string]json.RawMessage) error {
	m.mu.Lock()
	if err := m.checkLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if len(values) == 0 {
		m.mu.Unlock()
		return nil
	}

	keys := make([]string, 0, len(values))
	for k, v := range values {
		m.items[k] = Item{Value: cloneRaw(v), Version: m.items[k].Version + 1}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m.mu.Unlock()

	m.publish(keys)
	return nil
}

// Remove deletes keys and publishes a change if any existed.
func (m *MockStore) Remove(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	if err := m.checkLocked(); err != nil {
		m.mu.Unlock()
		return err
	}

	var removed []string
	for _, k := range keys {
		if _, ok := m.items[k]; ok {
			delete(m.items, k)
			removed = append(removed, k)
		}
	}
	m.mu.Unlock()

	if len(removed) > 0 {
		m.publish(removed)
	}
	return nil
}

// CompareAndSwap writes value when the current version equals expected.
func (m *MockStore) CompareAndSwap(ctx context.Context, key string, expected int64, value json.RawMessage) (int64, error) {
	m.mu.Lock()
	if err := m.checkLocked(); err != nil {
		m.mu.Unlock()
		return 0, err
	}

	current, ok := m.items[key]
	if (!ok && expected != 0) || (ok && current.Version != expected) {
		m.mu.Unlock()
		return 0, ErrVersionConflict
	}
	next := expected + 1
	m.items[key] = Item{Value: cloneRaw(value), Version: next}
	m.mu.Unlock()

	m.publish([]string{key})
	return next, nil
}

// Subscribe registers for change events.
func (m *MockStore) Subscribe(ctx context.Context) (<-chan Change, string) {
	return m.broadcaster.Subscribe(ctx)
}

// Close closes subscriber channels. Later operations return ErrClosed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.broadcaster.Close()
	return nil
}

func (m *MockStore) checkLocked() error {
	if m.closed {
		return ErrClosed
	}
	return m.err
}

func (m *MockStore) publish(keys []string) {
	m.broadcaster.Publish(Change{
		ID:        uuid.New().String(),
		Namespace: m.namespace,
		Keys:      keys,
		At:        time.Now().UTC(),
	})
}

func cloneRaw(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out
}
