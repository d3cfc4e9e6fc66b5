package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"llamarural/models"
)

// RedisCache stores the last result set as one JSON string under a single key.
type RedisCache struct {
	rc  *redis.Client
	key string
	ttl time.Duration
}

// OpenRedis creates a client for addr. It does not contact the server;
// NewRedisCache callers ping through the retry helper.
func OpenRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// NewRedisCache wraps an existing client. A zero ttl keeps the entry until
// the next Persist overwrites it.
func NewRedisCache(rc *redis.Client, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = "llamarural:nearby"
	}
	return &RedisCache{rc: rc, key: key, ttl: ttl}
}

// Ping checks that the server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rc.Ping(ctx).Err()
}

func (c *RedisCache) Persist(ctx context.Context, results []models.CachedResult) error {
	if len(results) == 0 {
		return nil
	}
	data, err := encodeResults(results)
	if err != nil {
		return fmt.Errorf("redis cache: encode: %w: %w", ErrCacheWrite, err)
	}
	if err := c.rc.Set(ctx, c.key, string(data), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis cache: set %s: %w: %w", c.key, ErrCacheWrite, err)
	}
	return nil
}

func (c *RedisCache) Load(ctx context.Context) ([]models.CachedResult, bool) {
	s, err := c.rc.Get(ctx, c.key).Result()
	if err != nil || s == "" {
		return nil, false
	}
	return decodeResults([]byte(s))
}

func (c *RedisCache) Close() error {
	return c.rc.Close()
}
