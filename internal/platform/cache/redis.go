// Package cache provides the Redis client and a versioned JSON read-through cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a new Redis client and pings it
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// Cache stores JSON values under versioned keys. Bumping a scope's version
// orphans every value written under the old version; TTL cleans them up.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current version of scope, 0 when never bumped
func (c *Cache) Version(ctx context.Context, scope string) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey(scope)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("platform/cache: version: %w", err)
	}
	return ver, nil
}

// FetchJSON loads the cached value for scope into dest, populating it with
// loader on a miss. Loader errors are returned unchanged and nothing is cached.
func (c *Cache) FetchJSON(ctx context.Context, scope string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("platform/cache: loader required")
	}

	ver, err := c.Version(ctx, scope)
	if err != nil {
		return err
	}
	key := scope + ":v" + strconv.FormatInt(ver, 10)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("platform/cache: get: %w", err)
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("platform/cache: encode: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("platform/cache: decode: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("platform/cache: set: %w", err)
	}
	return nil
}

// Bump invalidates scope by incrementing its version
func (c *Cache) Bump(ctx context.Context, scope string) error {
	if err := c.client.Incr(ctx, versionKey(scope)).Err(); err != nil {
		return fmt.Errorf("platform/cache: bump: %w", err)
	}
	return nil
}

func versionKey(scope string) string {
	return scope + ":version"
}
