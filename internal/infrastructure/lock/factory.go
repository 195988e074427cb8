package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds the key locker named by the inventory config
type Factory struct {
	redisConfig   config.RedisConfig
	inventory     config.InventoryConfig
	logger        *zap.Logger
	localFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory and the lockers it creates
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithLocalFallback lets the factory fall back to a LocalLocker when Redis
// cannot be reached. Off by default: two instances with local lockers do
// not exclude each other.
func WithLocalFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.localFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, invCfg config.InventoryConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig: redisCfg,
		inventory:   invCfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the configured locker and a close func for its resources
func (f *Factory) Create(ctx context.Context) (inventory.KeyLocker, func() error, error) {
	if f.inventory.LockBackend != config.LockBackendRedis {
		f.logger.Info("using in-process key locks", zap.Duration("wait", f.inventory.LockWait))
		return NewLocalLocker(f.inventory.LockWait), noopClose, nil
	}

	locker, err := f.createRedis(ctx)
	if err == nil {
		f.logger.Info("using redis key locks",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Duration("ttl", f.inventory.LockTTL),
		)
		return locker, locker.Close, nil
	}
	if !f.localFallback {
		return nil, nil, fmt.Errorf("redis required for key locks but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-process key locks. "+
		"Instances sharing the database will not exclude each other.",
		zap.Error(err),
	)
	return NewLocalLocker(f.inventory.LockWait), noopClose, nil
}

func (f *Factory) createRedis(ctx context.Context) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisLocker(client, RedisConfig{
		TTL:  f.inventory.LockTTL,
		Wait: f.inventory.LockWait,
	}, f.logger), nil
}

func noopClose() error { return nil }
