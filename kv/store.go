package kv

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Sentinel errors for store operations.
var (
	ErrWrongType  = errors.New("kv: operation against a key holding the wrong kind of value")
	ErrNotInteger = errors.New("kv: value is not an integer")
	ErrClosed     = errors.New("kv: store is closed")
)

// Store is the backing-store contract used by the cache.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use; single-key
// operations are atomic.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Get returns (nil, false, nil) on a missing or expired key.
// Type conflicts return ErrWrongType; connection errors are returned wrapped.
type Store interface {
	// Get reads the value stored at key.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes value at key, replacing whatever was there. ttl <= 0 means
	// the key does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Incr increments the integer at key by one and returns the new value.
	// A missing key starts at zero. An existing expiration is kept.
	Incr(ctx context.Context, key string) (int64, error)

	// RPush appends value to the list at key.
	RPush(ctx context.Context, key string, value []byte) error

	// LRange returns the list elements between start and stop inclusive.
	// Negative indexes count from the end (-1 is the last element).
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	// FlushDB removes every key in the store's namespace.
	FlushDB(ctx context.Context) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources owned by the store.
	Close() error
}

// rangeBounds converts Redis-style inclusive start/stop indexes into a
// half-open [lo, hi) slice window over n elements.
func rangeBounds(n int, start, stop int64) (lo, hi int, ok bool) {
	size := int64(n)
	if start < 0 {
		start += size
	}
	if stop < 0 {
		stop += size
	}
	if start < 0 {
		start = 0
	}
	if stop >= size {
		stop = size - 1
	}
	if start > stop || start >= size {
		return 0, 0, false
	}
	return int(start), int(stop) + 1, true
}

// parseCounter accepts only the canonical decimal form Incr writes, so
// "", "+5" and "007" are not counters.
func parseCounter(value []byte) (int64, error) {
	n, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != string(value) {
		return 0, ErrNotInteger
	}
	return n, nil
}
