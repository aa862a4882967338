package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
)

// Redis is a Store backed by a Redis server. All keys are namespaced under
// a prefix so several applications can share one database.
type Redis struct {
	client    *redis.Client
	namespace string
}

// NewRedis connects to the Redis server at url (redis://host:port/db) and
// verifies the connection.
func NewRedis(ctx context.Context, url, namespace string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Redis{client: client, namespace: namespace}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, namespace string) *Redis {
	return &Redis{client: client, namespace: namespace}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Del(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del %s: %w", key, err)
	}
	return n > 0, nil
}

// Keys walks the keyspace with SCAN rather than KEYS so large databases are
// not blocked.
func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, scanPattern(r.namespace, prefix), 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
		}
		for _, k := range batch {
			keys = append(keys, r.stripNamespace(k))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Incr uses INCR, which Redis executes atomically.
func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, r.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(k string) string {
	return namespacedKey(r.namespace, k)
}

func (r *Redis) stripNamespace(k string) string {
	if r.namespace == "" {
		return k
	}
	return k[len(r.namespace)+1:]
}

// namespacedKey joins namespace and key with a colon.
func namespacedKey(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}

// scanPattern builds a SCAN MATCH pattern for keys under prefix, escaping
// glob metacharacters in the prefix.
func scanPattern(namespace, prefix string) string {
	escaped := make([]byte, 0, len(prefix))
	for i := 0; i < len(prefix); i++ {
		switch c := prefix[i]; c {
		case '*', '?', '[', ']', '\\':
			escaped = append(escaped, '\\', c)
		default:
			escaped = append(escaped, c)
		}
	}
	return namespacedKey(namespace, string(escaped)) + "*"
}
