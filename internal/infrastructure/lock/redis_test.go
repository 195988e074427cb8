package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRedisLocker(t *testing.T, cfg RedisConfig, logger *zap.Logger) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := NewRedisLocker(client, cfg, logger)
	t.Cleanup(func() { _ = locker.Close() })
	return locker, mr
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	locker, mr := newRedisLocker(t, RedisConfig{TTL: time.Minute, Wait: 30 * time.Millisecond}, nil)
	ctx := context.Background()

	release, err := locker.Lock(ctx, "lot:a")
	require.NoError(t, err)
	assert.True(t, mr.Exists(defaultKeyPrefix+"lot:a"))
	assert.Equal(t, time.Minute, mr.TTL(defaultKeyPrefix+"lot:a"))

	_, err = locker.Lock(ctx, "lot:a")
	assert.True(t, shared.IsTransient(err))

	release()
	assert.False(t, mr.Exists(defaultKeyPrefix+"lot:a"))

	again, err := locker.Lock(ctx, "lot:a")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_WaitsForRelease(t *testing.T) {
	locker, _ := newRedisLocker(t, RedisConfig{TTL: time.Minute, Wait: time.Second, Poll: 5 * time.Millisecond}, nil)
	ctx := context.Background()

	release, err := locker.Lock(ctx, "lot:a")
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()

	second, err := locker.Lock(ctx, "lot:a")
	require.NoError(t, err)
	second()
}

func TestRedisLocker_ExpiredHolderCannotReleaseNewOwner(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	locker, mr := newRedisLocker(t, RedisConfig{TTL: time.Second, Wait: 20 * time.Millisecond}, zap.New(core))
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "lot:a")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	current, err := locker.Lock(ctx, "lot:a")
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists(defaultKeyPrefix+"lot:a"), "stale token must not delete the new owner's key")
	assert.Equal(t, 1, logs.FilterMessage("key lock expired before release").Len())

	current()
	assert.False(t, mr.Exists(defaultKeyPrefix+"lot:a"))
}

func TestRedisLocker_ContextCancel(t *testing.T) {
	locker, _ := newRedisLocker(t, RedisConfig{TTL: time.Minute}, nil)

	release, err := locker.Lock(context.Background(), "lot:a")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "lot:a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLocker_ServerDownIsTransient(t *testing.T) {
	locker, mr := newRedisLocker(t, RedisConfig{TTL: time.Minute}, nil)
	mr.Close()

	_, err := locker.Lock(context.Background(), "lot:a")
	assert.True(t, shared.IsTransient(err))
}

func TestRedisLocker_Ping(t *testing.T) {
	locker, mr := newRedisLocker(t, RedisConfig{}, nil)
	require.NoError(t, locker.Ping(context.Background()))

	mr.Close()
	assert.Error(t, locker.Ping(context.Background()))
}
