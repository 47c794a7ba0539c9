package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache wraps the Redis client with the JSON read-model helpers and the
// explicit invalidation layer used by every mutation path. Correctness-
// sensitive entries are removed by these helpers, never left to TTL expiry.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
}

// New builds the cache layer.
func New(client *redis.Client, logger zerolog.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// Client exposes the underlying Redis client for components that need raw
// counter operations (the pair-state store).
func (c *Cache) Client() *redis.Client {
	return c.client
}

// GetJSON loads a cached value into dest. The boolean reports a cache hit.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// A stale or incompatible payload is treated as a miss.
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return false, nil
	}

	return true, nil
}

// SetJSON stores a value under key with the supplied TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store cache key %s: %w", key, err)
	}

	return nil
}

// Delete removes the given keys as part of the mutation that staled them.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache keys: %w", err)
	}

	return nil
}

// DeletePattern removes every key matching pattern. Used when an out-of-band
// mutation (clearing a participant's play data) stales an unbounded key set.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache pattern %s: %w", pattern, err)
	}

	return c.Delete(ctx, keys...)
}
