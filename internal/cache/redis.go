// Package cache is an optional Redis read-through for dashboard payloads.
// Aggregate queries are pure functions of the stored events, so a short TTL
// can only delay what the dashboard sees, never corrupt it.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores serialized dashboard payloads under short TTLs. The zero
// value (nil client) is a no-op, so callers never branch on whether Redis is
// configured.
type Cache struct {
	client *redis.Client
}

// New connects to Redis at redisURL, or returns a disabled cache when the
// URL is empty. A connection failure disables the cache rather than failing
// boot: degraded freshness beats a dead dashboard.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	if redisURL == "" {
		return &Cache{}, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return &Cache{}, nil
	}
	return &Cache{client: client}, nil
}

// Enabled reports whether a Redis backend is connected.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached payload for key, or ok=false on miss, error, or
// disabled cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores payload under key for ttl. Errors are dropped; the cache is
// best-effort.
func (c *Cache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	_ = c.client.Set(ctx, key, payload, ttl).Err()
}

// Close releases the underlying client.
func (c *Cache) Close() {
	if c.Enabled() {
		_ = c.client.Close()
	}
}
