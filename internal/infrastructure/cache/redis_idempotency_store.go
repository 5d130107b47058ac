package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/larder/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces reference claims in Redis
const DefaultKeyPrefix = "larder:reference:"

// RedisIdempotencyStore implements IdempotencyStore using Redis, so several
// instances share which references were committed.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore connects to addr and pings it
func NewRedisIdempotencyStore(ctx context.Context, opts *redis.Options) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisIdempotencyStoreWithClient(client, DefaultKeyPrefix), nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing client
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Claim uses SETNX so concurrent claims of one key have a single winner
func (s *RedisIdempotencyStore) Claim(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %q: %w", key, err)
	}
	return ok, nil
}

// Lookup returns the claimed value for key
func (s *RedisIdempotencyStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up %q: %w", key, err)
	}
	return value, true, nil
}

// Forget deletes a claim
func (s *RedisIdempotencyStore) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to forget %q: %w", key, err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
