package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "lfpanel:"

// RedisBackend keeps payloads as plain string keys and each tag as a set of
// the keys written under it.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(addr string, password string, db int) *RedisBackend {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisBackend{client: client}
}

func (c *RedisBackend) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisBackend) Close() error {
	return c.client.Close()
}

func (c *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return payload, true, nil
}

func (c *RedisBackend) Set(ctx context.Context, key string, payload []byte, tags []string, ttl time.Duration) error {
	fullKey := redisKeyPrefix + key
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, fullKey, payload, ttl)
		for _, tag := range tags {
			tagKey := redisKeyPrefix + "tag:" + tag
			pipe.SAdd(ctx, tagKey, fullKey)
			if ttl > 0 {
				pipe.Expire(ctx, tagKey, ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// invalidateTagScript reads and deletes a tag set and its members in one
// step.
var invalidateTagScript = redis.NewScript(`
local members = redis.call('SMEMBERS', KEYS[1])
for i = 1, #members, 500 do
	redis.call('DEL', unpack(members, i, math.min(i + 499, #members)))
end
redis.call('DEL', KEYS[1])
return #members
`)

func (c *RedisBackend) InvalidateTag(ctx context.Context, tag string) error {
	tagKey := redisKeyPrefix + "tag:" + tag
	if err := invalidateTagScript.Run(ctx, c.client, []string{tagKey}).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}
