package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Cache backed by Redis. Keys are prefixed with namespace.
type RedisCache struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

// NewRedisCache connects to a single Redis node, or to a cluster when more
// than one address is given.
func NewRedisCache(addrs []string, password, namespace string, ttl time.Duration) *RedisCache {
	var rdb redis.UniversalClient
	if len(addrs) > 1 {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: password,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addrs[0],
			Password: password,
		})
	}
	return &RedisCache{client: rdb, namespace: namespace, ttl: ttl}
}

func (r *RedisCache) key(k string) string {
	return r.namespace + ":" + k
}

func (r *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

func (r *RedisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), data, r.ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	// One DEL per key: in cluster mode the keys may live in different slots.
	pipe := r.client.Pipeline()
	for _, k := range keys {
		pipe.Del(ctx, r.key(k))
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Ping checks connectivity.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
