// ABOUTME: Unit tests for MockStore behavior not covered by the shared KV tests
// ABOUTME: Focuses on failure injection and copy semantics

package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_FailWith(t *testing.T) {
	m := NewMockStore("")
	ctx := context.Background()
	boom := errors.New("backend unavailable")

	m.FailWith(boom)
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, m.Set(ctx, map[string]json.RawMessage{"k": json.RawMessage(`1`)}), boom)
	assert.ErrorIs(t, m.Remove(ctx, "k"), boom)
	_, err = m.CompareAndSwap(ctx, "k", 0, json.RawMessage(`1`))
	assert.ErrorIs(t, err, boom)

	m.FailWith(nil)
	require.NoError(t, m.Set(ctx, map[string]json.RawMessage{"k": json.RawMessage(`1`)}))
}

func TestMockStore_GetReturnsCopy(t *testing.T) {
	m := NewMockStore("")
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, map[string]json.RawMessage{"k": json.RawMessage(`[1]`)}))

	items, err := m.Get(ctx, "k")
	require.NoError(t, err)
	items["k"].Value[1] = '9'

	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `[1]`, string(again["k"].Value))
}

func TestMockStore_Namespace(t *testing.T) {
	assert.Equal(t, DefaultNamespace, NewMockStore("").Namespace())
	assert.Equal(t, "local", NewMockStore("local").Namespace())
}
