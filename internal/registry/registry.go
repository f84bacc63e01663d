// ABOUTME: Identifier registry kept as one JSON array under a reserved key
// ABOUTME: Add-if-absent and remove are version-checked read-modify-write loops

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/tabsaver/internal/store"
)

// Key is the reserved storage key holding the identifier list.
const Key = "tabsaver.identifiers"

// DefaultMaxRetries is how many times an update is retried after losing a
// compare-and-swap race.
const DefaultMaxRetries = 5

// ErrContention is returned when an update keeps losing races.
var ErrContention = errors.New("registry update contention")

// Registry maintains the ordered, duplicate-free list of saved identifiers.
// It holds no state besides the backend handle.
type Registry struct {
	kv         store.KV
	maxRetries int
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(r *Registry) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Registry over kv.
func New(kv store.KV, opts ...Option) *Registry {
	r := &Registry{
		kv:         kv,
		maxRetries: DefaultMaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "registry")
	return r
}

// Snapshot returns the stored identifiers and whether the registry key
// exists at all.
func (r *Registry) Snapshot(ctx context.Context) ([]string, bool, error) {
	ids, version, err := r.read(ctx)
	if err != nil {
		return nil, false, err
	}
	return ids, version > 0, nil
}

// List returns the stored identifiers; a missing registry is empty.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	ids, _, err := r.Snapshot(ctx)
	return ids, err
}

// Add appends id unless an equal entry exists. The full list is written back
// either way.
func (r *Registry) Add(ctx context.Context, id string) error {
	return r.update(ctx, "add", id, func(ids []string, exists bool) ([]string, bool) {
		for _, existing := range ids {
			if existing == id {
				return ids, true
			}
		}
		return append(ids, id), true
	})
}

// Remove drops every entry equal to id. A missing registry is left missing.
func (r *Registry) Remove(ctx context.Context, id string) error {
	return r.update(ctx, "remove", id, func(ids []string, exists bool) ([]string, bool) {
		if !exists {
			return nil, false
		}
		kept := make([]string, 0, len(ids))
		for _, existing := range ids {
			if existing != id {
				kept = append(kept, existing)
			}
		}
		return kept, true
	})
}

// update applies fn to the current list and writes the result with
// CompareAndSwap against the version that was read, retrying on conflict.
func (r *Registry) update(ctx context.Context, op, id string, fn func(ids []string, exists bool) ([]string, bool)) error {
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		ids, version, err := r.read(ctx)
		if err != nil {
			return err
		}

		next, write := fn(ids, version > 0)
		if !write {
			return nil
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding registry: %w", err)
		}

		_, err = r.kv.CompareAndSwap(ctx, Key, version, data)
		if err == nil {
			r.logger.Debug("registry updated", "op", op, "identifier", id, "count", len(next))
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return fmt.Errorf("writing registry: %w", err)
		}
		r.logger.Debug("registry write lost race, retrying", "op", op, "identifier", id, "attempt", attempt+1)
	}
	return fmt.Errorf("%s %q: %w", op, id, ErrContention)
}

// read returns the list and its version (0 when the key is absent).
func (r *Registry) read(ctx context.Context) ([]string, int64, error) {
	items, err := r.kv.Get(ctx, Key)
	if err != nil {
		return nil, 0, fmt.Errorf("reading registry: %w", err)
	}
	item, ok := items[Key]
	if !ok {
		return []string{}, 0, nil
	}

	var ids []string
	if err := json.Unmarshal(item.Value, &ids); err != nil {
		return nil, 0, fmt.Errorf("decoding registry: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, item.Version, nil
}
