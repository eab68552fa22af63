package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonwraymond/calltrack/observe"
	"github.com/jonwraymond/calltrack/resilience"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "calltrack/1.0"

// DefaultMaxBodySize caps how much of a response body is read.
const DefaultMaxBodySize = 10 << 20

// StatusError captures an unexpected status code and the response body.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: unexpected status code: %d, body: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Retryable reports whether a fetch error may succeed on another attempt.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}

// userAgentRoundTripper sets the User-Agent header on every request.
type userAgentRoundTripper struct {
	wrapped   http.RoundTripper
	userAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", rt.userAgent)
	return rt.wrapped.RoundTrip(clone)
}

// HTTP fetches URLs with GET.
type HTTP struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	exec        *resilience.Executor
}

// Option configures an HTTP fetcher.
type Option func(*HTTP)

// WithClient sets the base client. Its transport is wrapped, not replaced.
func WithClient(c *http.Client) Option {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(h *HTTP) {
		if ua != "" {
			h.userAgent = ua
		}
	}
}

// WithMaxBodySize caps the number of body bytes read per response.
func WithMaxBodySize(n int64) Option {
	return func(h *HTTP) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

// WithExecutor runs every fetch through exec.
func WithExecutor(exec *resilience.Executor) Option {
	return func(h *HTTP) {
		h.exec = exec
	}
}

// New creates an HTTP fetcher.
func New(opts ...Option) *HTTP {
	h := &HTTP{
		client:      &http.Client{Timeout: 10 * time.Second},
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(h)
	}

	base := *h.client
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	base.Transport = &userAgentRoundTripper{wrapped: transport, userAgent: h.userAgent}
	h.client = &base

	return h
}

// Fetch returns the body of url.
func (h *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	if h.exec == nil {
		return h.get(ctx, url)
	}

	var body []byte
	err := h.exec.Execute(ctx, func(ctx context.Context) error {
		b, err := h.get(ctx, url)
		if err != nil {
			if !Retryable(err) {
				return resilience.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (h *HTTP) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("fetch: build request: %w", err))
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

// DefaultExecutor returns the executor used for upstream pages: three
// attempts with jittered exponential backoff, a 10 second deadline per
// attempt, and a circuit breaker that ignores permanent failures. Retries
// are logged at warn level.
func DefaultExecutor(logger observe.Logger) *resilience.Executor {
	if logger == nil {
		logger = observe.NopLogger()
	}
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
		RetryIf:      Retryable,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warn(context.Background(), "retrying fetch",
				observe.Field{Key: "attempt", Value: attempt},
				observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
				observe.Field{Key: "error", Value: err.Error()},
			)
		},
	})
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		IsFailure: func(err error) bool {
			return err != nil && !resilience.IsPermanent(err)
		},
	})
	return resilience.NewExecutor(
		resilience.WithCircuitBreaker(breaker),
		resilience.WithRetry(retry),
		resilience.WithTimeout(10*time.Second),
	)
}
