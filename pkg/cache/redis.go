package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces planmap entries in a shared database.
const DefaultRedisPrefix = "planmap:cache:"

// RedisCache stores entries in Redis with native key expiry.
type RedisCache struct {
	rdb    redis.UniversalClient
	prefix string
	owned  bool
}

// NewRedisCache wraps an existing client. Close does not close it.
func NewRedisCache(rdb redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix}
}

// DialRedisCache connects to url, which may be a redis:// URL or a bare
// host:port address, and verifies the connection with PING.
func DialRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return &RedisCache{rdb: rdb, prefix: DefaultRedisPrefix, owned: true}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.rdb.Set(ctx, c.prefix+key, data, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefix+key).Err()
}

// Close closes the client if the cache dialed it.
func (c *RedisCache) Close() error {
	if c.owned {
		return c.rdb.Close()
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
