// ABOUTME: Collection store mapping an identifier to its ordered list of tab URLs
// ABOUTME: One key per identifier, values are JSON arrays of location strings

package collection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2389/tabsaver/internal/store"
)

// Store reads and writes tab collections. It holds only the backend handle.
type Store struct {
	kv store.KV
}

// New creates a collection Store over kv.
func New(kv store.KV) *Store {
	return &Store{kv: kv}
}

// Put overwrites the collection stored under id.
func (s *Store) Put(ctx context.Context, id string, locations []string) error {
	if locations == nil {
		locations = []string{}
	}
	data, err := json.Marshal(locations)
	if err != nil {
		return fmt.Errorf("encoding collection: %w", err)
	}
	if err := s.kv.Set(ctx, map[string]json.RawMessage{id: data}); err != nil {
		return fmt.Errorf("writing collection %q: %w", id, err)
	}
	return nil
}

// Get returns the stored locations in order, or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) ([]string, error) {
	items, err := s.kv.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reading collection %q: %w", id, err)
	}
	item, ok := items[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	var locations []string
	if err := json.Unmarshal(item.Value, &locations); err != nil {
		return nil, fmt.Errorf("decoding collection %q: %w", id, err)
	}
	return locations, nil
}

// Delete removes the collection stored under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.kv.Remove(ctx, id); err != nil {
		return fmt.Errorf("removing collection %q: %w", id, err)
	}
	return nil
}
