//go:build integration

package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"idwallet/internal/storage"
)

func startRedis(t *testing.T) *storage.RedisStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := storage.NewRedisStore(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := startRedis(t)

	require.NoError(t, store.Set(ctx, "credential:x", "ciphertext"))
	v, err := store.Get(ctx, "credential:x")
	require.NoError(t, err)
	assert.Equal(t, "ciphertext", v)

	require.NoError(t, store.Delete(ctx, "credential:x"))
	_, err = store.Get(ctx, "credential:x")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestRedisStore_KeysByPrefix(t *testing.T) {
	ctx := context.Background()
	store := startRedis(t)

	require.NoError(t, store.Set(ctx, "credential:a", "1"))
	require.NoError(t, store.Set(ctx, "credential:b", "2"))
	require.NoError(t, store.Set(ctx, "request:c", "3"))

	keys, err := store.Keys(ctx, "credential:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"credential:a", "credential:b"}, keys)
}

func TestRedisStore_Health(t *testing.T) {
	store := startRedis(t)
	assert.NoError(t, store.Health(context.Background()))
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := storage.NewRedisStore(context.Background(), "not-a-url")
	assert.Error(t, err)
}
