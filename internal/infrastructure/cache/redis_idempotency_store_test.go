package cache

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/ledgerflow/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisIdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisIdempotencyStore(client, "")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisIdempotencyStore_Lifecycle(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "k-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, reservedMarker, mustGet(t, mr, defaultKeyPrefix+"k-1"))

	ok, err = store.Reserve(ctx, "k-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	resp, err := store.Lookup(ctx, "k-1")
	require.NoError(t, err)
	assert.Nil(t, resp, "a reservation is not a response")

	require.NoError(t, store.Complete(ctx, "k-1", Response{
		Status:      201,
		ContentType: "application/json; charset=utf-8",
		Body:        []byte(`{"success":true}`),
	}, time.Minute))

	resp, err = store.Lookup(ctx, "k-1")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, `{"success":true}`, string(resp.Body))

	require.NoError(t, store.Release(ctx, "k-1"))
	assert.False(t, mr.Exists(defaultKeyPrefix+"k-1"))
}

func TestRedisIdempotencyStore_TTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, "k-2", 30*time.Second)
	require.NoError(t, err)
	mr.FastForward(31 * time.Second)

	ok, err := store.Reserve(ctx, "k-2", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "an abandoned reservation expires")
}

func TestRedisIdempotencyStore_ServerDown(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.Reserve(context.Background(), "k-3", time.Minute)
	assert.Error(t, err)
	assert.Error(t, store.Ping(context.Background()))
}

func TestIdempotencyStoreFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("local backend", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(config.RedisConfig{}, config.LockBackendLocal).CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("redis backend", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := NewIdempotencyStoreFactory(redisConfig(t, mr), config.LockBackendRedis).CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &RedisIdempotencyStore{}, store)
	})

	t.Run("redis down without fallback", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := redisConfig(t, mr)
		mr.Close()

		_, err := NewIdempotencyStoreFactory(cfg, config.LockBackendRedis).CreateStore(ctx)
		assert.Error(t, err)

		store, err := NewIdempotencyStoreFactory(cfg, config.LockBackendRedis, WithInMemoryFallback(true)).CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})
}

func redisConfig(t *testing.T, mr *miniredis.Miniredis) config.RedisConfig {
	t.Helper()
	host, port, ok := strings.Cut(mr.Addr(), ":")
	require.True(t, ok)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return config.RedisConfig{Host: host, Port: p}
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
