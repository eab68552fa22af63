package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestNewRetry_Defaults(t *testing.T) {
	cfg := NewRetry(RetryConfig{}).Config()

	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != 100*time.Millisecond {
		t.Errorf("InitialDelay = %v, want 100ms", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 30*time.Second {
		t.Errorf("MaxDelay = %v, want 30s", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", cfg.Multiplier)
	}
	if cfg.Clock == nil {
		t.Error("Clock should default to the real clock")
	}
}

func TestRetry_SuccessOnRetry(t *testing.T) {
	var retries []int
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		OnRetry: func(attempt int, _ error, _ time.Duration) {
			retries = append(retries, attempt)
		},
	})

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("503 service unavailable")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", retries)
	}
}

func TestRetry_ExhaustedAttempts(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})
	testErr := errors.New("connection reset")

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		return testErr
	})

	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("error = %v, want ErrMaxRetriesExceeded", err)
	}
	if !errors.Is(err, testErr) {
		t.Errorf("error = %v, want it to wrap %v", err, testErr)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetry_StopsOnPermanent(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond})
	notFound := errors.New("404 not found")

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		return Permanent(notFound)
	})

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if !errors.Is(err, notFound) || errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("error = %v, want the permanent error unchanged", err)
	}
}

func TestRetry_RetryIf(t *testing.T) {
	retryable := errors.New("retryable")
	r := NewRetry(RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		RetryIf:      func(err error) bool { return errors.Is(err, retryable) },
	})

	attempts := 0
	other := errors.New("other")
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts == 1 {
			return retryable
		}
		return other
	})

	if !errors.Is(err, other) || attempts != 2 {
		t.Errorf("Execute() = %v after %d attempts, want other after 2", err, attempts)
	}
}

func TestRetry_WaitsOnClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Minute, Clock: clock})

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Execute(context.Background(), func(context.Context) error {
			attempts++
			if attempts == 1 {
				return errors.New("transient")
			}
			return nil
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("retry never waited on the clock: %v", err)
	}
	clock.Advance(time.Minute)

	if err := <-done; err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetry_ContextCancelledDuringWait(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	err := r.Execute(ctx, func(context.Context) error {
		cancel()
		return errors.New("transient")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRetry_Delay(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RetryConfig
		attempt int
		want    time.Duration
	}{
		{"constant", RetryConfig{InitialDelay: time.Second, Strategy: BackoffConstant}, 3, time.Second},
		{"linear", RetryConfig{InitialDelay: time.Second, Strategy: BackoffLinear}, 3, 3 * time.Second},
		{"exponential", RetryConfig{InitialDelay: time.Second, Multiplier: 2}, 3, 4 * time.Second},
		{"capped", RetryConfig{InitialDelay: time.Second, MaxDelay: 2 * time.Second, Multiplier: 10}, 3, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewRetry(tt.cfg).delay(tt.attempt); got != tt.want {
				t.Errorf("delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetry_Jitter(t *testing.T) {
	r := NewRetry(RetryConfig{InitialDelay: time.Second, Strategy: BackoffConstant, Jitter: true})
	for range 20 {
		d := r.delay(1)
		if d < time.Second || d >= time.Second+time.Second/4 {
			t.Fatalf("delay = %v, want within [1s, 1.25s)", d)
		}
	}
}
