package replicate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrRetriesExhausted is returned when every attempt was throttled.
var ErrRetriesExhausted = errors.New("replicate: retries exhausted")

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper backed by a timer.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy bounds retries of throttled calls.
// After the n-th attempt is throttled the caller waits BaseBackoff*n.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// DefaultRetryPolicy returns 3 attempts with a 30s linear backoff step.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 30 * time.Second,
	}
}

// Backoff returns the wait after the given 1-based throttled attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BaseBackoff * time.Duration(attempt)
}

// Caller wraps a Transport with the shared rate-limit retry policy.
// Only throttling is retried; every other failure is returned on the first attempt.
type Caller struct {
	transport Transport
	policy    RetryPolicy
	sleep     Sleeper
	logger    *slog.Logger
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) CallerOption {
	return func(c *Caller) {
		c.policy = p
	}
}

// WithSleeper overrides how backoff waits are performed (useful for tests).
func WithSleeper(s Sleeper) CallerOption {
	return func(c *Caller) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) CallerOption {
	return func(c *Caller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCaller creates a Caller around transport.
func NewCaller(transport Transport, opts ...CallerOption) *Caller {
	c := &Caller{
		transport: transport,
		policy:    DefaultRetryPolicy(),
		sleep:     SleepContext,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the caller's default retry policy.
func (c *Caller) Policy() RetryPolicy {
	return c.policy
}

// Call sends req using the caller's default policy.
func (c *Caller) Call(ctx context.Context, req Request) (*Response, error) {
	return c.CallWithPolicy(ctx, req, c.policy)
}

// CallWithPolicy sends req, retrying throttled attempts according to policy.
func (c *Caller) CallWithPolicy(ctx context.Context, req Request, policy RetryPolicy) (*Response, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.transport.Send(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsThrottled(err) {
			return nil, err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		wait := policy.Backoff(attempt)
		c.logger.Warn("rate limited, backing off",
			slog.String("method", req.Method),
			slog.String("url", req.URL),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.Duration("wait", wait),
		)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("replicate: context cancelled: %w", err)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, maxAttempts, lastErr)
}
