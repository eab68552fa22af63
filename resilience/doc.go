// Package resilience guards calls to upstream sources.
//
// It is used by the HTTP fetcher to retry transient failures, bound each
// attempt with a deadline, and stop calling a source that keeps failing.
//
//   - Retry: re-runs a failed call with constant, linear or exponential
//     backoff. Errors marked with Permanent are returned immediately.
//   - Timeout: bounds a single call with a deadline.
//   - CircuitBreaker: rejects calls with ErrCircuitOpen after repeated
//     failures, then lets a probe through once ResetTimeout has passed.
//   - Executor: composes the three as breaker, then retry, then timeout
//     per attempt.
//
// Delays and breaker timing are read from a clockwork.Clock so tests can
// drive them with a fake clock.
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(5*time.Second),
//	)
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    body, err = get(ctx, url)
//	    return err
//	})
package resilience
