//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"iinfinder/internal/platform/config"
	redisclient "iinfinder/internal/platform/redis"
)

// RedisContainer is a Redis instance reached through the same client
// constructor the server uses for the redis cache backend.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *redis.Client
	platform  *redisclient.Client
}

// NewRedisContainer starts Redis. The Manager shares it across suites and
// Ryuk reaps it, so no t.Cleanup is registered.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redis connection string: %v", err)
	}

	client, err := redisclient.New(ctx, config.RedisConfig{URL: url, PoolSize: 5})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to redis: %v", err)
	}
	return &RedisContainer{
		Container: container,
		URL:       url,
		Client:    client.Client,
		platform:  client,
	}
}

// Health pings through the platform client.
func (r *RedisContainer) Health(ctx context.Context) error {
	return r.platform.Health(ctx)
}

// FlushAll isolates tests that share the container.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
