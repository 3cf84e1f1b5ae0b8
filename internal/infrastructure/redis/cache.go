package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Cache is a thin namespaced wrapper around a redis client.
type Cache struct {
	client goredis.UniversalClient
}

func NewCache(addr, password string) *Cache {
	return &Cache{client: goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})}
}

// NewCacheFromClient wraps an existing client.
func NewCacheFromClient(c goredis.UniversalClient) *Cache { return &Cache{client: c} }

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// IncrWithExpire increments namespace:key and starts its TTL on the first hit,
// giving a fixed window counter.
func (c *Cache) IncrWithExpire(ctx context.Context, namespace, key string, window time.Duration) (int64, error) {
	countKey := namespace + ":" + key

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, countKey)
	pipe.ExpireNX(ctx, countKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *Cache) Close() error { return c.client.Close() }
