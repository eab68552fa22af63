package config

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/calltrack/kv"
)

// OpenStore opens the configured backend. A Redis store is pinged before it
// is returned. The caller closes the store.
func OpenStore(ctx context.Context, cfg Config) (kv.Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return kv.NewMemory(), nil

	case BackendSQLite:
		return kv.OpenSQLite(ctx, cfg.SQLitePath)

	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := kv.NewRedis(client, kv.WithPrefix(cfg.Redis.Prefix))
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("config: connect redis %s: %w", cfg.Redis.Addr, err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidBackend, cfg.Backend)
	}
}
