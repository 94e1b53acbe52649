package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kiwiprop/transfer-system/internal/api/metrics"
)

const redisKeyPrefix = "respcache:"

// RedisCache is the Redis-backed alternative to DiskCache for deployments
// where query replicas should share one response cache. Same contract:
// no TTL, wholesale clear only, faults logged and swallowed.
type RedisCache struct {
	client *redis.Client
	bypass bool
	log    zerolog.Logger
}

func NewRedisCache(client *redis.Client, bypass bool, log zerolog.Logger) *RedisCache {
	return &RedisCache{client: client, bypass: bypass, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.bypass {
		return nil, false
	}
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.fault("cache read failed", key, err)
		}
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Put(ctx context.Context, key string, data []byte) {
	if c.bypass {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, 0).Err(); err != nil {
		c.fault("cache write failed", key, err)
	}
}

// Clear walks the cache keyspace with SCAN and deletes everything under the
// prefix.
func (c *RedisCache) Clear(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.fault("cache clear failed", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		c.fault("cache clear failed", "", err)
	}
}

func (c *RedisCache) fault(msg, key string, err error) {
	metrics.CacheFaultsTotal.Inc()
	c.log.Warn().Err(err).Str("key", key).Msg(msg)
}
