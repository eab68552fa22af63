package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jonwraymond/calltrack/observe"
	"github.com/jonwraymond/calltrack/secret"
)

// Backend names accepted in CALLTRACK_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

var (
	ErrInvalidBackend    = errors.New("config: invalid backend")
	ErrMissingSQLitePath = errors.New("config: sqlite path is required")
	ErrMissingRedisAddr  = errors.New("config: redis address is required")
	ErrInvalidTTL        = errors.New("config: fetch ttl must not be negative")
)

// Config holds every calltrack setting.
type Config struct {
	// Backend selects the store. Only sqlite and redis keep counters and
	// history between invocations.
	Backend    string `env:"CALLTRACK_BACKEND" envDefault:"sqlite"`
	SQLitePath string `env:"CALLTRACK_SQLITE_PATH" envDefault:"calltrack.db"`
	Redis      RedisConfig

	// Flush clears the backing namespace when a Cache is created.
	Flush bool `env:"CALLTRACK_FLUSH"`

	FetchTTL   time.Duration `env:"CALLTRACK_FETCH_TTL" envDefault:"10s"`
	FetchRetry bool          `env:"CALLTRACK_FETCH_RETRY"`
	UserAgent  string        `env:"CALLTRACK_USER_AGENT" envDefault:"calltrack/1.0"`

	Telemetry TelemetryConfig
}

// RedisConfig configures the Redis backend. Addr and Password may hold
// ${VAR} or secretref: references.
type RedisConfig struct {
	Addr     string `env:"CALLTRACK_REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"CALLTRACK_REDIS_PASSWORD"`
	DB       int    `env:"CALLTRACK_REDIS_DB"`
	Prefix   string `env:"CALLTRACK_REDIS_PREFIX"`
}

// TelemetryConfig configures logging, tracing, and metrics.
type TelemetryConfig struct {
	ServiceName     string  `env:"CALLTRACK_SERVICE_NAME" envDefault:"calltrack"`
	LogLevel        string  `env:"CALLTRACK_LOG_LEVEL" envDefault:"warn"`
	TracingExporter string  `env:"CALLTRACK_TRACING_EXPORTER" envDefault:"none"`
	SamplePct       float64 `env:"CALLTRACK_TRACE_SAMPLE" envDefault:"1"`
	MetricsExporter string  `env:"CALLTRACK_METRICS_EXPORTER" envDefault:"none"`
}

// Load parses the environment and resolves secret references with the
// providers on secret.DefaultRegistry.
func Load(ctx context.Context) (Config, error) {
	resolver, err := secret.DefaultRegistry.NewResolver(nil)
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = resolver.Close() }()
	return LoadWith(ctx, resolver)
}

// LoadWith is Load with a caller-supplied resolver.
func LoadWith(ctx context.Context, resolver *secret.Resolver) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	for name, field := range map[string]*string{
		"CALLTRACK_REDIS_ADDR":     &cfg.Redis.Addr,
		"CALLTRACK_REDIS_PASSWORD": &cfg.Redis.Password,
		"CALLTRACK_SQLITE_PATH":    &cfg.SQLitePath,
	} {
		resolved, err := resolver.ResolveValue(ctx, *field)
		if err != nil {
			return Config{}, fmt.Errorf("config: resolve %s: %w", name, err)
		}
		*field = resolved
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the backend selection and fetch settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return ErrMissingSQLitePath
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Backend)
	}
	if c.FetchTTL < 0 {
		return ErrInvalidTTL
	}
	return nil
}

// Observe returns the telemetry settings as an observe.Config. Logging is
// always enabled; tracing and metrics are enabled unless their exporter is
// "none".
func (c *Config) Observe(version string) observe.Config {
	t := c.Telemetry
	return observe.Config{
		ServiceName: t.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   t.TracingExporter != "" && t.TracingExporter != "none",
			Exporter:  t.TracingExporter,
			SamplePct: t.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  t.MetricsExporter != "" && t.MetricsExporter != "none",
			Exporter: t.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   t.LogLevel,
		},
	}
}
