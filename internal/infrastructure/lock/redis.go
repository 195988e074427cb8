package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "ledgerflow:lock:"

// releaseScript deletes the key only while it still carries our token, so
// a holder whose TTL lapsed cannot free a lock someone else now owns.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig tunes a RedisLocker
type RedisConfig struct {
	// TTL is how long a key stays locked if its holder never releases it
	TTL time.Duration
	// Wait bounds how long Lock polls before failing transiently
	Wait time.Duration
	// Poll is the delay between acquisition attempts
	Poll      time.Duration
	KeyPrefix string
}

// RedisLocker implements inventory.KeyLocker with SET NX PX so that several
// processes sharing one database also share key locks.
type RedisLocker struct {
	client *redis.Client
	cfg    RedisConfig
	logger *zap.Logger
}

// NewRedisLocker creates a locker over an existing client
func NewRedisLocker(client *redis.Client, cfg RedisConfig, logger *zap.Logger) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 10 * time.Millisecond
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, cfg: cfg, logger: logger}
}

// Lock polls SET NX until the key is ours, ctx ends or the wait elapses
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.cfg.KeyPrefix + key
	token := uuid.NewString()

	var deadline time.Time
	if l.cfg.Wait > 0 {
		deadline = time.Now().Add(l.cfg.Wait)
	}

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.cfg.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Join(shared.ErrTransient, fmt.Errorf("lock %q: %w", key, err))
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, errors.Join(shared.ErrTransient, fmt.Errorf("lock %q not acquired within %s", key, l.cfg.Wait))
		}

		timer := time.NewTimer(l.cfg.Poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// releaser runs on a fresh context: the unit's context may already be
// cancelled by the time its locks are released.
func (l *RedisLocker) releaser(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			deleted, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
			switch {
			case err != nil:
				l.logger.Warn("failed to release key lock",
					zap.String("key", redisKey),
					zap.Error(err),
				)
			case deleted == 0:
				l.logger.Warn("key lock expired before release",
					zap.String("key", redisKey),
					zap.Duration("ttl", l.cfg.TTL),
				)
			}
		})
	}
}

// Ping reports whether the lock server answers
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

var _ inventory.KeyLocker = (*RedisLocker)(nil)
