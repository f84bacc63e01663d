// ABOUTME: Tests for the collection store
// ABOUTME: Covers put/get ordering, overwrite, delete, and not-found handling

package collection

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/tabsaver/internal/store"
)

func TestStore_PutGetPreservesOrder(t *testing.T) {
	s := New(store.NewMockStore(""))
	ctx := context.Background()

	urls := []string{"https://c.example", "https://a.example", "https://b.example"}
	require.NoError(t, s.Put(ctx, "work", urls))

	got, err := s.Get(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, urls, got)
}

func TestStore_PutOverwrites(t *testing.T) {
	s := New(store.NewMockStore(""))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "work", []string{"https://old.example"}))
	require.NoError(t, s.Put(ctx, "work", []string{"https://new.example"}))

	got, err := s.Get(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://new.example"}, got)
}

func TestStore_GetMissing(t *testing.T) {
	s := New(store.NewMockStore(""))

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	s := New(store.NewMockStore(""))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "work", []string{"https://a.example"}))
	require.NoError(t, s.Delete(ctx, "work"))
	require.NoError(t, s.Delete(ctx, "work"), "deleting twice is fine")

	_, err := s.Get(ctx, "work")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_StoredAsJSONArray(t *testing.T) {
	kv := store.NewMockStore("")
	s := New(kv)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "work", []string{"https://a.example"}))

	items, err := kv.Get(ctx, "work")
	require.NoError(t, err)
	assert.JSONEq(t, `["https://a.example"]`, string(items["work"].Value))
}

func TestStore_DecodeError(t *testing.T) {
	kv := store.NewMockStore("")
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, map[string]json.RawMessage{"work": json.RawMessage(`42`)}))

	_, err := New(kv).Get(ctx, "work")
	assert.ErrorContains(t, err, "decoding collection")
}
