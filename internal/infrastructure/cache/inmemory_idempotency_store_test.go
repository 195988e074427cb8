package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_Lifecycle(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	ok, err := store.Reserve(ctx, "POST /receipts|k-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("reserved key is taken but has no response", func(t *testing.T) {
		ok, err := store.Reserve(ctx, "POST /receipts|k-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)

		resp, err := store.Lookup(ctx, "POST /receipts|k-1")
		require.NoError(t, err)
		assert.Nil(t, resp)
	})

	t.Run("completed key replays its response", func(t *testing.T) {
		require.NoError(t, store.Complete(ctx, "POST /receipts|k-1", Response{Status: 201, Body: []byte(`{"ok":1}`)}, time.Hour))

		resp, err := store.Lookup(ctx, "POST /receipts|k-1")
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, 201, resp.Status)
		assert.Equal(t, `{"ok":1}`, string(resp.Body))

		ok, err := store.Reserve(ctx, "POST /receipts|k-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("released key can be reserved again", func(t *testing.T) {
		require.NoError(t, store.Release(ctx, "POST /receipts|k-1"))
		ok, err := store.Reserve(ctx, "POST /receipts|k-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Complete(ctx, "short", Response{Status: 200}, time.Minute))
	require.NoError(t, store.Complete(ctx, "long", Response{Status: 200}, time.Hour))
	assert.Equal(t, 2, store.Size())

	now = now.Add(2 * time.Minute)

	resp, err := store.Lookup(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, resp, "expired response is not replayed")

	ok, err := store.Reserve(ctx, "short", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired key can be reused")

	now = now.Add(2 * time.Minute)
	store.cleanup()
	assert.Equal(t, 1, store.Size())

	resp, err = store.Lookup(ctx, "long")
	require.NoError(t, err)
	assert.NotNil(t, resp)
}

func TestInMemoryIdempotencyStore_ConcurrentReserve(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	const workers = 100

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Reserve(ctx, "same-key", time.Hour)
			if err == nil && ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won, "exactly one request should win the key")
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close(), "closing twice is safe")
}
