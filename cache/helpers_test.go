package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/calltrack/kv"
)

// backend is a kv.Store under test plus a way to move its notion of time.
type backend struct {
	name    string
	store   kv.Store
	advance func(time.Duration)
}

func backends(t *testing.T) []backend {
	t.Helper()

	memClock := clockwork.NewFakeClock()
	mem := kv.NewMemory(kv.WithClock(memClock))

	sqlClock := clockwork.NewFakeClock()
	sq, err := kv.OpenSQLite(context.Background(), ":memory:", kv.WithSQLiteClock(sqlClock))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}

	mr := miniredis.RunT(t)
	rd := kv.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	t.Cleanup(func() {
		_ = mem.Close()
		_ = sq.Close()
		_ = rd.Close()
	})

	return []backend{
		{name: "memory", store: mem, advance: memClock.Advance},
		{name: "sqlite", store: sq, advance: sqlClock.Advance},
		{name: "redis", store: rd, advance: mr.FastForward},
	}
}

// sequenceKeys returns a KeyGenerator yielding key-1, key-2, ...
func sequenceKeys() KeyGenerator {
	var n atomic.Int64
	return KeyGeneratorFunc(func() (string, error) {
		return fmt.Sprintf("key-%d", n.Add(1)), nil
	})
}

func newTestCache(t *testing.T, store kv.Store, opts ...Option) *Cache {
	t.Helper()
	c, err := New(context.Background(), store, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}
