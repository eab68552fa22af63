package resilience

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds an attempt when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Timeout runs calls under a deadline.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a Timeout of d, or DefaultTimeout when d <= 0.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &Timeout{d: d}
}

// Duration returns the configured deadline.
func (t *Timeout) Duration() time.Duration {
	return t.d
}

// Execute runs op with a context that expires after the timeout. op must
// honor its context. When the deadline fires and the caller's own context
// is still live, ErrTimeout is returned in place of the deadline error.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	err := op(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
