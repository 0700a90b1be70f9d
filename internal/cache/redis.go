package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/meetbot/internal/config"
)

// CounterTTL bounds how long a cached counter may lag behind the DB.
const CounterTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForFavoriteCount is the counter of a user's favorites.
func (c *RedisCache) KeyForFavoriteCount(userID uint64) string {
	return fmt.Sprintf("favorites:count:%d", userID)
}

// GetCounter reads a cached counter. ok is false on a miss.
// A hit refreshes the TTL.
func (c *RedisCache) GetCounter(ctx context.Context, key string) (n int64, ok bool, err error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // garbage reads as a miss
	}
	_ = c.Client.Expire(ctx, key, CounterTTL).Err()
	return n, true, nil
}

// SetCounter stores a counter with a fresh TTL.
func (c *RedisCache) SetCounter(ctx context.Context, key string, n int64) error {
	return c.Client.Set(ctx, key, n, CounterTTL).Err()
}

// adjustScript bumps a counter and its TTL only while the key exists.
var adjustScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	redis.call("INCRBY", KEYS[1], ARGV[1])
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// AdjustCounter adds delta to a counter only if it is cached. A missing
// counter stays missing so the next read recomputes it from the DB.
func (c *RedisCache) AdjustCounter(ctx context.Context, key string, delta int64) error {
	return adjustScript.Run(ctx, c.Client, []string{key}, delta, CounterTTL.Milliseconds()).Err()
}
