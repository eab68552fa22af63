package resilience

import (
	"context"
	"time"
)

// Executor composes a circuit breaker, retry and per-attempt timeout.
// Unset patterns are skipped.
type Executor struct {
	breaker *CircuitBreaker
	retry   *Retry
	timeout *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.breaker = cb
	}
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithTimeout bounds every attempt with d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(d)
	}
}

// Execute runs op. The breaker sees the outcome of the whole retry loop,
// and each attempt gets its own timeout.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op

	if e.timeout != nil {
		attempt := run
		run = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, attempt)
		}
	}
	if e.retry != nil {
		attempts := run
		run = func(ctx context.Context) error {
			return e.retry.Execute(ctx, attempts)
		}
	}
	if e.breaker != nil {
		guarded := run
		run = func(ctx context.Context) error {
			return e.breaker.Execute(ctx, guarded)
		}
	}

	return run(ctx)
}
