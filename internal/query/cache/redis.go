package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hr-query-engine/internal/models"
)

const DefaultKeyPrefix = "hr-query:cache:"

// RedisCache shares answers across processes. Expiry is delegated to Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger Logger
	stats  counters
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, log Logger) *RedisCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{
			"component": "redis-cache",
		}),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.Envelope, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		c.stats.misses.Inc()
		return nil, false, nil
	}
	if err != nil {
		c.stats.errors.Inc()
		return nil, false, fmt.Errorf("%w: redis get: %v", ErrCache, err)
	}
	return c.decode(ctx, key, val)
}

// GetWithTTL reads the entry and its remaining lifetime in one round trip.
// The lifetime is 0 when the key carries no expiry.
func (c *RedisCache) GetWithTTL(ctx context.Context, key string) (*models.Envelope, time.Duration, bool, error) {
	pipe := c.client.Pipeline()
	get := pipe.Get(ctx, c.prefix+key)
	pttl := pipe.PTTL(ctx, c.prefix+key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		c.stats.errors.Inc()
		return nil, 0, false, fmt.Errorf("%w: redis get: %v", ErrCache, err)
	}

	val, err := get.Result()
	remaining := pttl.Val()
	if errors.Is(err, redis.Nil) || remaining == -2 {
		c.stats.misses.Inc()
		return nil, 0, false, nil
	}
	if err != nil {
		c.stats.errors.Inc()
		return nil, 0, false, fmt.Errorf("%w: redis get: %v", ErrCache, err)
	}

	env, ok, err := c.decode(ctx, key, val)
	if remaining < 0 {
		remaining = 0
	}
	return env, remaining, ok, err
}

func (c *RedisCache) decode(ctx context.Context, key, val string) (*models.Envelope, bool, error) {
	var env models.Envelope
	if err := json.Unmarshal([]byte(val), &env); err != nil {
		c.stats.errors.Inc()
		c.logger.Warn("dropping undecodable cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		c.client.Del(ctx, c.prefix+key)
		return nil, false, fmt.Errorf("%w: decode: %v", ErrCache, err)
	}
	c.stats.hits.Inc()
	return &env, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, env *models.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		c.stats.errors.Inc()
		return fmt.Errorf("%w: encode: %v", ErrCache, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.stats.errors.Inc()
		return fmt.Errorf("%w: redis set: %v", ErrCache, err)
	}
	c.stats.sets.Inc()
	return nil
}

// Clear deletes every key under the prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("%w: redis scan: %v", ErrCache, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: redis del: %v", ErrCache, err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Info("cache cleared", map[string]interface{}{
		"deleted": deleted,
	})
	return nil
}

// Stats reports Size as -1 since keys are not counted.
func (c *RedisCache) Stats() Stats {
	return c.stats.snapshot("redis", -1)
}
