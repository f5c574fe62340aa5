// Package cache provides the Redis access layer: API rate limiting, plus the
// shared client the orphan identity stream runs on.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options tunes the connection pool. Zero values take the defaults.
type Options struct {
	PoolSize     int
	MinIdleConns int
}

const (
	defaultPoolSize     = 10
	defaultMinIdleConns = 2
)

// Cache wraps the shared Redis client.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, redisURL string, opts ...Options) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	applyOptions(opt, o)

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

func applyOptions(opt *redis.Options, o Options) {
	opt.PoolSize = o.PoolSize
	if opt.PoolSize <= 0 {
		opt.PoolSize = defaultPoolSize
	}
	opt.MinIdleConns = o.MinIdleConns
	if opt.MinIdleConns <= 0 {
		opt.MinIdleConns = defaultMinIdleConns
	}
	if opt.MinIdleConns > opt.PoolSize {
		opt.MinIdleConns = opt.PoolSize
	}
	// Sweeper reads block for up to five seconds; leave room above that.
	opt.ReadTimeout = 10 * time.Second
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping checks Redis connectivity. It backs /readyz.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client.
func (c *Cache) Client() *redis.Client {
	return c.client
}
