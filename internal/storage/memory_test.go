package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idwallet/internal/storage"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", "v1"))
	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	// Last write wins.
	require.NoError(t, store.Set(ctx, "k", "v2"))
	v, _ = store.Get(ctx, "k")
	assert.Equal(t, "v2", v)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestMemoryStore_GetMiss(t *testing.T) {
	_, err := storage.NewMemoryStore().Get(context.Background(), "absent")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	assert.NoError(t, store.Delete(context.Background(), "never existed"))
}

func TestMemoryStore_KeysByPrefix(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "credential:a", "1"))
	require.NoError(t, store.Set(ctx, "credential:b", "2"))
	require.NoError(t, store.Set(ctx, "request:c", "3"))

	keys, err := store.Keys(ctx, "credential:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"credential:a", "credential:b"}, keys)

	none, err := store.Keys(ctx, "missing:")
	require.NoError(t, err)
	assert.Empty(t, none)
}
