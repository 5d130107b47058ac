package cache

import (
	"context"
	"fmt"

	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Idempotency backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// NewIdempotencyStore builds the store named by cfg.Backend. It returns a
// nil store for BackendNone; callers treat that as "idempotency disabled".
// A redis backend that cannot be reached is an error, not a fallback, since
// per-instance memory would let two instances commit one reference twice.
func NewIdempotencyStore(ctx context.Context, cfg config.IdempotencyConfig, redisCfg config.RedisConfig, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case BackendNone:
		logger.Warn("Reference idempotency disabled")
		return nil, nil
	case BackendMemory, "":
		logger.Info("Using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(0), nil
	case BackendRedis:
		store, err := NewRedisIdempotencyStore(ctx, &redis.Options{
			Addr:     redisCfg.Addr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Using Redis idempotency store", zap.String("addr", redisCfg.Addr()))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Backend)
	}
}
