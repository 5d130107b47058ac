//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	store, err := NewRedisIdempotencyStore(ctx, &redis.Options{Addr: endpoint})
	require.NoError(t, err)
	defer store.Close()

	ok, err := store.Claim(ctx, "order-1", "tx-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "order-1", "tx-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	value, found, err := store.Lookup(ctx, "order-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tx-1", value)

	require.NoError(t, store.Forget(ctx, "order-1"))
	_, found, err = store.Lookup(ctx, "order-1")
	require.NoError(t, err)
	assert.False(t, found)
}
