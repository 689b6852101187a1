package a

import (
	"context"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
)

type counter struct{}

func (counter) Increment(key string, delta uint64) (uint64, error) { return 0, nil }

func memcached(mc *memcache.Client) {
	_, _ = mc.Get("k")
	_ = mc.Set(&memcache.Item{Key: "k"})
	_, _ = mc.Increment("k", 1) // want `native memcache.Increment is forbidden`
	_, _ = mc.Decrement("k", 1) // want `native memcache.Decrement is forbidden`
}

func redisClient(ctx context.Context, rdb *redis.Client, c redis.Cmdable) {
	_ = rdb.Get(ctx, "k")
	_ = rdb.Incr(ctx, "k")             // want `native redis.Incr is forbidden`
	_ = rdb.IncrByFloat(ctx, "k", 1.5) // want `native redis.IncrByFloat is forbidden`
	_ = c.Incr(ctx, "k")               // want `native redis.Incr is forbidden`
}

func local() {
	_, _ = counter{}.Increment("k", 1)
}
