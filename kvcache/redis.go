package kvcache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisStorage adapts a Redis database to the Storage interface, for setups
// where the cache should survive the local machine (or be shared between
// machines). Quota management is left to the Redis server, so MaxBytes
// reports unlimited and the Store's threshold eviction never triggers.
type RedisStorage struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStorage wraps a Redis client. If namespace is empty it defaults to
// "cryptofolio".
func NewRedisStorage(rdb *redis.Client, namespace string) *RedisStorage {
	if namespace == "" {
		namespace = "cryptofolio"
	}
	return &RedisStorage{rdb: rdb, namespace: namespace}
}

func (r *RedisStorage) key(key string) string { return r.namespace + ":" + key }

func (r *RedisStorage) Get(key string) (string, bool) {
	v, err := r.rdb.Get(context.Background(), r.key(key)).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (r *RedisStorage) Set(key, value string) error {
	// TTL is the cache layer's responsibility, so entries are stored without
	// a Redis expiry.
	return r.rdb.Set(context.Background(), r.key(key), value, 0).Err()
}

func (r *RedisStorage) Delete(key string) {
	_ = r.rdb.Del(context.Background(), r.key(key)).Err()
}

func (r *RedisStorage) Keys() []string {
	var keys []string
	iter := r.rdb.Scan(context.Background(), 0, r.key("*"), 0).Iterator()
	for iter.Next(context.Background()) {
		keys = append(keys, iter.Val()[len(r.namespace)+1:])
	}
	return keys
}

func (r *RedisStorage) UsedBytes() int64 { return 0 }
func (r *RedisStorage) MaxBytes() int64  { return 0 }
