// ABOUTME: KV interface and data types for tabsaver persistence
// ABOUTME: Defines Item, Change, the KV contract, and the store's sentinel errors

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// DefaultNamespace is the synchronized namespace the core reads and writes.
const DefaultNamespace = "sync"

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned by CompareAndSwap when the stored version
// no longer matches the version the caller read
var ErrVersionConflict = errors.New("version conflict")

// ErrClosed is returned for operations on a closed store
var ErrClosed = errors.New("store closed")

// Item is a stored value together with its version. Versions start at 1 and
// increase by one on every write to the key.
type Item struct {
	Value   json.RawMessage
	Version int64
}

// Change describes one committed mutation. A Set or Remove touching several
// keys produces a single Change listing all of them.
type Change struct {
	ID        string
	Namespace string
	Keys      []string
	At        time.Time
}

// HasKey reports whether key is among the changed keys.
func (c Change) HasKey(key string) bool {
	for _, k := range c.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// KV is a namespaced key-value store with a change stream. Implementations
// never cache values: every Get goes to the backend.
type KV interface {
	// Namespace returns the namespace all reads and writes are bound to.
	Namespace() string

	// Get returns the items for the keys that exist. Missing keys are absent
	// from the result; that is not an error.
	Get(ctx context.Context, keys ...string) (map[string]Item, error)

	// Set writes all entries atomically. Last writer wins.
	Set(ctx context.Context, values map[string]json.RawMessage) error

	// Remove deletes the keys. Removing a missing key is a no-op.
	Remove(ctx context.Context, keys ...string) error

	// CompareAndSwap writes value only if the key's current version equals
	// expected (0 means the key must not exist). It returns the new version
	// or ErrVersionConflict.
	CompareAndSwap(ctx context.Context, key string, expected int64, value json.RawMessage) (int64, error)

	// Subscribe registers for change events. The channel is closed when ctx
	// is cancelled or the store is closed.
	Subscribe(ctx context.Context) (<-chan Change, string)

	// Close releases any resources held by the store
	Close() error
}
