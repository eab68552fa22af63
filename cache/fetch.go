package cache

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/calltrack/kv"
	"github.com/jonwraymond/calltrack/observe"
)

// Fetcher retrieves the current content for id from an upstream source.
type Fetcher func(ctx context.Context, id string) ([]byte, error)

// CountKey returns the key counting fetches of id.
func CountKey(id string) string {
	return "count:" + id
}

// CachedKey returns the key holding the cached content of id.
func CachedKey(id string) string {
	return "cached:" + id
}

var fetchMeta = observe.OpMeta{Namespace: "FetchCache", Name: "Fetch"}

// FetchCache serves upstream content from a kv.Store until it expires.
//
// Contract:
//   - Concurrency: safe for concurrent use if the underlying kv.Store is.
//   - Counting: every Fetch increments CountKey(id), including cache hits
//     and failed fetches.
//   - Errors: fetch errors are returned and nothing is cached.
type FetchCache struct {
	store   kv.Store
	fetcher Fetcher
	policy  Policy
	ttl     time.Duration
	mw      *observe.Middleware
	logger  observe.Logger
	group   *singleflight.Group

	op observe.ExecuteFunc
}

// FetchOption configures a FetchCache.
type FetchOption func(*FetchCache)

// WithTTL sets how long fetched content is cached. It is clamped by the
// policy's MaxTTL.
func WithTTL(ttl time.Duration) FetchOption {
	return func(f *FetchCache) {
		f.ttl = ttl
	}
}

// WithPolicy replaces DefaultFetchPolicy.
func WithPolicy(p Policy) FetchOption {
	return func(f *FetchCache) {
		f.policy = p
	}
}

// WithFetchObserver wraps fetches with tracing, metrics, and logging, and
// records cache hits and misses.
func WithFetchObserver(mw *observe.Middleware) FetchOption {
	return func(f *FetchCache) {
		if mw != nil {
			f.mw = mw
		}
	}
}

// WithCoalescing makes concurrent misses for the same id share a single
// upstream fetch. Every caller is still counted. The shared fetch ignores
// the cancellation of the caller that started it; each caller stops waiting
// when its own context is done.
func WithCoalescing() FetchOption {
	return func(f *FetchCache) {
		f.group = &singleflight.Group{}
	}
}

// NewFetchCache creates a FetchCache over store that loads misses with fetch.
func NewFetchCache(store kv.Store, fetch Fetcher, opts ...FetchOption) (*FetchCache, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if fetch == nil {
		return nil, ErrNilFetcher
	}

	f := &FetchCache{
		store:   store,
		fetcher: fetch,
		policy:  DefaultFetchPolicy(),
		mw:      observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.mw.Logger()
	f.op = f.mw.Wrap(func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		return f.fetch(ctx, input.(string))
	})

	return f, nil
}

// TTL returns the effective time-to-live of cached content. Zero means
// fetched content is never cached.
func (f *FetchCache) TTL() time.Duration {
	return f.policy.EffectiveTTL(f.ttl)
}

// Fetch returns the content for id, from the store if a live copy exists,
// otherwise from the fetcher.
func (f *FetchCache) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ValidateKey(id); err != nil {
		return nil, err
	}
	out, err := f.op(ctx, fetchMeta, id)
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (f *FetchCache) fetch(ctx context.Context, id string) ([]byte, error) {
	if _, err := f.store.Incr(ctx, CountKey(id)); err != nil {
		return nil, fmt.Errorf("cache: count fetch %q: %w", id, err)
	}

	ttl := f.TTL()
	if ttl <= 0 {
		return f.load(ctx, id, 0)
	}

	cached, ok, err := f.store.Get(ctx, CachedKey(id))
	if err != nil {
		return nil, fmt.Errorf("cache: read cached %q: %w", id, err)
	}
	f.mw.RecordLookup(ctx, fetchMeta, ok)
	if ok {
		f.logger.Debug(ctx, "fetch cache hit", observe.Field{Key: "id", Value: id})
		return cached, nil
	}
	f.logger.Debug(ctx, "fetch cache miss", observe.Field{Key: "id", Value: id})

	return f.load(ctx, id, ttl)
}

// load fetches id and caches the content for ttl when ttl is positive.
func (f *FetchCache) load(ctx context.Context, id string, ttl time.Duration) ([]byte, error) {
	fill := func(ctx context.Context) ([]byte, error) {
		content, err := f.fetcher(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("cache: fetch %q: %w", id, err)
		}
		if content == nil {
			content = []byte{}
		}
		if ttl > 0 {
			if err := f.store.Set(ctx, CachedKey(id), content, ttl); err != nil {
				return nil, fmt.Errorf("cache: store fetched %q: %w", id, err)
			}
		}
		return content, nil
	}

	if f.group == nil {
		return fill(ctx)
	}

	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(id, func() (any, error) {
		return fill(shared)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return bytes.Clone(res.Val.([]byte)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Count returns how many times id has been fetched.
func (f *FetchCache) Count(ctx context.Context, id string) (int64, error) {
	if err := ValidateKey(id); err != nil {
		return 0, err
	}
	raw, ok, err := f.store.Get(ctx, CountKey(id))
	if err != nil {
		return 0, fmt.Errorf("cache: read count %q: %w", id, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}
