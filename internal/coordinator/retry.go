package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/scidex/scifetch/internal/domain"
)

const (
	// DefaultMaxAttempts is the total number of tries per request,
	// including the first.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay seeds the exponential backoff schedule.
	DefaultBaseDelay = 500 * time.Millisecond

	// DefaultMaxDelay caps a single backoff wait.
	DefaultMaxDelay = 8 * time.Second
)

// RetryPolicy retries retryable failures with exponential backoff and
// jitter. The policy runs in the coordinator rather than the HTTP client
// so each attempt flows through the source's rate limiter and consumes a
// fresh token.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt; each further
	// attempt doubles it. The jitter added on top is drawn from
	// [0, BaseDelay).
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff (jitter excluded).
	MaxDelay time.Duration

	// sleep is a wait hook for tests. Nil means a context-aware timer.
	sleep func(ctx context.Context, d time.Duration) error

	// jitter is a randomness hook for tests. Nil means rand.Float64.
	jitter func() float64
}

// OnRetry is notified before each retry wait with the attempt number that
// just failed, the wait about to happen, and the error that caused it.
type OnRetry func(attempt int, delay time.Duration, err error)

// applyDefaults fills zero fields with the package defaults.
func (p *RetryPolicy) applyDefaults() {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.sleep == nil {
		p.sleep = sleepCtx
	}
	if p.jitter == nil {
		p.jitter = rand.Float64
	}
}

// Execute runs fn until it succeeds, fails non-retryably, exhausts
// MaxAttempts, or the context ends. It returns the number of attempts made
// alongside the final error. An exhausted schedule wraps the last error
// with the attempt count.
func (p RetryPolicy) Execute(ctx context.Context, fn func(ctx context.Context) error, onRetry OnRetry) (int, error) {
	p.applyDefaults()

	var lastErr error
	attempts := 0
	for attempts < p.MaxAttempts {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return attempts, err
			}
			break
		}

		attempts++
		lastErr = fn(ctx)
		if lastErr == nil {
			return attempts, nil
		}

		if !domain.IsRetryable(lastErr) || attempts == p.MaxAttempts {
			break
		}

		delay := p.backoff(attempts, lastErr)
		if onRetry != nil {
			onRetry(attempts, delay, lastErr)
		}

		if err := p.sleep(ctx, delay); err != nil {
			break
		}
	}

	return attempts, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// backoff computes the wait before the next attempt. A Retry-After hint
// from the source overrides the exponential schedule.
func (p RetryPolicy) backoff(attempt int, err error) time.Duration {
	var rlErr *domain.RateLimitError
	if errors.As(err, &rlErr) && rlErr.RetryAfter > 0 {
		return rlErr.RetryAfter
	}

	delay := p.BaseDelay << (attempt - 1)
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	return delay + time.Duration(p.jitter()*float64(p.BaseDelay))
}

// sleepCtx waits for d or until ctx ends, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
