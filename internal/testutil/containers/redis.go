//go:build integration

package containers

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer wraps a testcontainers Redis instance used by the
// distributed evaluation lock tests.
type RedisContainer struct {
	container *tcredis.RedisContainer
	addr      string
}

// NewRedisContainer starts a Redis container with the given image tag
// (default "7-alpine").
func NewRedisContainer(ctx context.Context, imageTag string) (*RedisContainer, error) {
	if imageTag == "" {
		imageTag = "7-alpine"
	}

	container, err := tcredis.Run(ctx, "redis:"+imageTag)
	if err != nil {
		return nil, fmt.Errorf("failed to start Redis container: %w", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get Redis endpoint: %w", err)
	}

	rc := &RedisContainer{container: container, addr: endpoint}
	if err := rc.HealthCheck(ctx); err != nil {
		_ = container.Terminate(context.Background())
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	return rc, nil
}

// Addr returns host:port for go-redis options.
func (c *RedisContainer) Addr() string {
	return c.addr
}

// NewClient returns a go-redis client for this container. The caller closes it.
func (c *RedisContainer) NewClient() *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: c.addr})
}

// HealthCheck pings the server.
func (c *RedisContainer) HealthCheck(ctx context.Context) error {
	client := c.NewClient()
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

// FlushAll clears every key between tests.
func (c *RedisContainer) FlushAll(ctx context.Context) error {
	client := c.NewClient()
	defer func() { _ = client.Close() }()
	return client.FlushAll(ctx).Err()
}

// Terminate stops and removes the Redis container.
func (c *RedisContainer) Terminate(ctx context.Context) error {
	if c.container == nil {
		return nil
	}
	if err := c.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate container: %w", err)
	}
	return nil
}
