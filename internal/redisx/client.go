package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// New returns nil when addr is empty; helpers below treat a nil client as
// "no cache" so Redis stays optional.
func New(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// FirstSeen marks key and reports whether this call was the first to do so.
// Without Redis every call is first.
func FirstSeen(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (bool, error) {
	if rdb == nil {
		return true, nil
	}
	return rdb.SetNX(ctx, key, "1", ttl).Result()
}

// Lookup returns the stored value, or "" when absent or without Redis.
func Lookup(ctx context.Context, rdb *redis.Client, key string) (string, error) {
	if rdb == nil {
		return "", nil
	}
	v, err := rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func Remember(ctx context.Context, rdb *redis.Client, key, value string, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	return rdb.Set(ctx, key, value, ttl).Err()
}

// Dedup marks processed keys for TTL.
type Dedup struct {
	RDB *redis.Client
	TTL time.Duration
}

func (d *Dedup) FirstSeen(ctx context.Context, key string) (bool, error) {
	return FirstSeen(ctx, d.RDB, key, d.TTL)
}
