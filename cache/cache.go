package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonwraymond/calltrack/kv"
	"github.com/jonwraymond/calltrack/observe"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// StoreOpName is the counter and history name used for Cache.Store.
const StoreOpName = "Cache.Store"

// Sentinel errors for cache operations.
var (
	ErrNilStore         = errors.New("cache: store is nil")
	ErrNilFetcher       = errors.New("cache: fetcher is nil")
	ErrNilConverter     = errors.New("cache: converter is nil")
	ErrInvalidKey       = errors.New("cache: key is invalid")
	ErrKeyTooLong       = errors.New("cache: key exceeds max length")
	ErrUnsupportedValue = errors.New("cache: unsupported value type")
)

// ConversionError reports that a stored value could not be converted by a
// GetWith converter.
type ConversionError struct {
	Key string
	Err error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cache: convert %q: %v", e.Key, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// ValidateKey checks if a key is valid for storage.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

var storeMeta = observe.OpMeta{Namespace: "Cache", Name: "Store"}

// Cache stores values under freshly generated keys and tracks every Store.
//
// Contract:
//   - Concurrency: safe for concurrent use if the underlying kv.Store is.
//   - Errors: backing store failures are returned wrapped; absence is not an error.
//   - Ownership: the caller owns the kv.Store and closes it.
type Cache struct {
	store  kv.Store
	keys   KeyGenerator
	mw     *observe.Middleware
	logger observe.Logger
	flush  bool

	storeOp Operation
}

// Option configures a Cache.
type Option func(*Cache)

// WithFlush clears the whole backing namespace when the Cache is created.
func WithFlush() Option {
	return func(c *Cache) {
		c.flush = true
	}
}

// WithKeyGenerator replaces the default UUID key generator.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(c *Cache) {
		if g != nil {
			c.keys = g
		}
	}
}

// WithObserver wraps Store calls with tracing, metrics, and logging.
func WithObserver(mw *observe.Middleware) Option {
	return func(c *Cache) {
		if mw != nil {
			c.mw = mw
		}
	}
}

// WithLogger sets the logger. Defaults to the observer's logger.
func WithLogger(l observe.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// New creates a Cache over store.
func New(ctx context.Context, store kv.Store, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	c := &Cache{
		store: store,
		keys:  NewUUIDKeyGenerator(),
		mw:    observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = c.mw.Logger()
	}

	if c.flush {
		if err := store.FlushDB(ctx); err != nil {
			return nil, fmt.Errorf("cache: flush: %w", err)
		}
		c.logger.Debug(ctx, "backing store flushed")
	}

	tracker := NewTracker(store)
	tracked := tracker.CallHistory(StoreOpName, tracker.CountCalls(StoreOpName, c.storeRaw))
	c.storeOp = Instrument(c.mw, storeMeta, tracked)

	return c, nil
}

// Store saves data under a new key and returns the key. Supported types are
// string, []byte, and the integer and floating point kinds.
func (c *Cache) Store(ctx context.Context, data any) (string, error) {
	if _, err := encodeValue(data); err != nil {
		return "", err
	}
	out, err := c.storeOp(ctx, data)
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *Cache) storeRaw(ctx context.Context, args ...any) (any, error) {
	value, err := encodeValue(args[0])
	if err != nil {
		return nil, err
	}
	key, err := c.keys.NewKey()
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, value, 0); err != nil {
		return nil, fmt.Errorf("cache: store %q: %w", key, err)
	}
	return key, nil
}

// Get returns the raw bytes stored under key. A missing key returns
// (nil, false, nil).
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}
	val, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %q: %w", key, err)
	}
	return val, ok, nil
}

// GetWith reads key and converts it with fn. A missing key returns the zero
// value and false without calling fn. A conversion failure is returned as a
// *ConversionError with found set to true.
func GetWith[T any](ctx context.Context, c *Cache, key string, fn func([]byte) (T, error)) (T, bool, error) {
	var zero T
	if fn == nil {
		return zero, false, ErrNilConverter
	}
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := fn(raw)
	if err != nil {
		return zero, true, &ConversionError{Key: key, Err: err}
	}
	return v, true, nil
}

// lenient drops absence and conversion failures, keeping store errors.
func lenient[T any](ctx context.Context, c *Cache, key string, fn func([]byte) (T, error)) (T, error) {
	v, _, err := GetWith(ctx, c, key, fn)
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		var zero T
		return zero, nil
	}
	return v, err
}

var errNotUTF8 = errors.New("value is not valid UTF-8")

// AsString converts a stored value to text. It fails on invalid UTF-8.
func AsString(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", errNotUTF8
	}
	return string(b), nil
}

// AsInt converts a stored value to a decimal integer, ignoring surrounding
// whitespace.
func AsInt(b []byte) (int, error) {
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

// AsFloat converts a stored value to a float, ignoring surrounding
// whitespace.
func AsFloat(b []byte) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
}

// GetString returns the value under key as text, or "" when it is missing
// or not valid UTF-8.
func (c *Cache) GetString(ctx context.Context, key string) (string, error) {
	return lenient(ctx, c, key, AsString)
}

// GetInt returns the value under key as a decimal integer, or 0 when it is
// missing or not an integer.
func (c *Cache) GetInt(ctx context.Context, key string) (int, error) {
	return lenient(ctx, c, key, AsInt)
}

// GetFloat returns the value under key as a float, or 0 when it is missing
// or not a number.
func (c *Cache) GetFloat(ctx context.Context, key string) (float64, error) {
	return lenient(ctx, c, key, AsFloat)
}

// Replay reports every tracked Store call.
func (c *Cache) Replay(ctx context.Context) (Report, error) {
	return Replay(ctx, c.store, StoreOpName)
}

func encodeValue(v any) ([]byte, error) {
	switch x := v.(type) {
	case string:
		return []byte(x), nil
	case []byte:
		return bytes.Clone(x), nil
	case int:
		return strconv.AppendInt(nil, int64(x), 10), nil
	case int8:
		return strconv.AppendInt(nil, int64(x), 10), nil
	case int16:
		return strconv.AppendInt(nil, int64(x), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(x), 10), nil
	case int64:
		return strconv.AppendInt(nil, x, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(x), 10), nil
	case uint8:
		return strconv.AppendUint(nil, uint64(x), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(x), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(x), 10), nil
	case uint64:
		return strconv.AppendUint(nil, x, 10), nil
	case float32:
		return strconv.AppendFloat(nil, float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.AppendFloat(nil, x, 'f', -1, 64), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}
