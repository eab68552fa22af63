package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// flushScanCount is the SCAN page size used when flushing a prefixed namespace.
const flushScanCount = 500

// Redis is a Store backed by a Redis server.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithPrefix namespaces every key with prefix. With a prefix set, FlushDB
// deletes only keys under the prefix instead of flushing the database.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// NewRedis wraps client. Close closes the client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get reads key; redis.Nil is reported as a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrapRedisErr("get", err)
	}
	return val, true, nil
}

// Set writes key with SET, or SET EX when ttl > 0.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return wrapRedisErr("set", err)
	}
	return nil
}

// Incr runs INCR on key.
func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, r.key(key)).Result()
	if err != nil {
		return 0, wrapRedisErr("incr", err)
	}
	return n, nil
}

// RPush runs RPUSH on key.
func (r *Redis) RPush(ctx context.Context, key string, value []byte) error {
	if err := r.client.RPush(ctx, r.key(key), value).Err(); err != nil {
		return wrapRedisErr("rpush", err)
	}
	return nil
}

// LRange runs LRANGE on key.
func (r *Redis) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := r.client.LRange(ctx, r.key(key), start, stop).Result()
	if err != nil {
		return nil, wrapRedisErr("lrange", err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// FlushDB runs FLUSHDB, or deletes every key under the prefix when one is set.
func (r *Redis) FlushDB(ctx context.Context) error {
	if r.prefix == "" {
		if err := r.client.FlushDB(ctx).Err(); err != nil {
			return wrapRedisErr("flushdb", err)
		}
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", flushScanCount).Result()
		if err != nil {
			return wrapRedisErr("scan", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return wrapRedisErr("del", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping runs PING.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return wrapRedisErr("ping", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// wrapRedisErr maps Redis reply errors onto the package sentinels.
func wrapRedisErr(op string, err error) error {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "WRONGTYPE"):
		return fmt.Errorf("kv: redis %s: %w", op, ErrWrongType)
	case strings.HasPrefix(msg, "ERR value is not an integer"):
		return fmt.Errorf("kv: redis %s: %w", op, ErrNotInteger)
	case errors.Is(err, redis.ErrClosed):
		return fmt.Errorf("kv: redis %s: %w", op, ErrClosed)
	default:
		return fmt.Errorf("kv: redis %s: %w", op, err)
	}
}

// Ensure Redis implements Store
var _ Store = (*Redis)(nil)
