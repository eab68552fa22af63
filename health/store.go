package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jonwraymond/calltrack/kv"
)

// StoreCheckerConfig configures a StoreChecker.
type StoreCheckerConfig struct {
	// SlowThreshold is the ping latency above which the store is degraded.
	// Default: 250ms
	SlowThreshold time.Duration

	// Clock measures ping latency. Default: the real clock.
	Clock clockwork.Clock
}

// StoreChecker pings a kv.Store.
type StoreChecker struct {
	backend string
	store   kv.Store
	config  StoreCheckerConfig
}

// NewStoreChecker creates a checker for store. backend names the store
// kind (memory, sqlite, redis) in the result details.
func NewStoreChecker(backend string, store kv.Store, config StoreCheckerConfig) *StoreChecker {
	if config.SlowThreshold <= 0 {
		config.SlowThreshold = 250 * time.Millisecond
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	return &StoreChecker{backend: backend, store: store, config: config}
}

// Name returns the name of this checker.
func (s *StoreChecker) Name() string {
	return "store"
}

// Check pings the store.
func (s *StoreChecker) Check(ctx context.Context) Result {
	start := s.config.Clock.Now()
	err := s.store.Ping(ctx)
	latency := s.config.Clock.Since(start)

	details := map[string]any{
		"backend":    s.backend,
		"latency_ms": latency.Milliseconds(),
	}

	if err != nil {
		return Unhealthy(fmt.Sprintf("%s store unreachable", s.backend),
			fmt.Errorf("%w: %w", ErrStoreUnreachable, err)).WithDetails(details)
	}
	if latency > s.config.SlowThreshold {
		return Degraded(fmt.Sprintf("%s store slow: %s", s.backend, latency)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%s store reachable", s.backend)).WithDetails(details)
}
