// Package cache stores positive membership answers in Redis for a short TTL.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "membership:"

// RedisCache implements oracle.Cache with go-redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache returns a cache that keeps positive answers for ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and returns a client. Caller must Close it.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func key(channel string, userID int64) string {
	return keyPrefix + channel + ":" + strconv.FormatInt(userID, 10)
}

// Get reports whether a positive answer is cached.
func (c *RedisCache) Get(ctx context.Context, channel string, userID int64) (bool, error) {
	_, err := c.client.Get(ctx, key(channel, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Put caches a positive answer.
func (c *RedisCache) Put(ctx context.Context, channel string, userID int64) error {
	return c.client.Set(ctx, key(channel, userID), "1", c.ttl).Err()
}

// Ping checks the Redis connection; used by readiness.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
