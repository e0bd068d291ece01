package sources

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimiter wraps a token bucket rate limiter for controlling request
// rates to an external API. Token consumption is admission-ordered: callers
// blocked in Wait are granted tokens in arrival order. It is safe for
// concurrent use because the underlying rate.Limiter is goroutine-safe.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter.
// ratePerSecond is the sustained rate of requests per second; burst is the
// maximum number of tokens that can be consumed at once.
//
// A ratePerSecond of 0 or less disables limiting entirely. This risks
// violating the remote API's policy, so a warning is logged.
//
// Example configurations:
//   - PubMed without an API key: NewRateLimiter(3, 3, logger)
//   - arXiv (one request per 3 seconds): NewRateLimiter(1.0/3.0, 1, logger)
func NewRateLimiter(ratePerSecond float64, burst int, logger zerolog.Logger) *RateLimiter {
	if ratePerSecond <= 0 {
		logger.Warn().
			Float64("rate_per_second", ratePerSecond).
			Msg("rate limit unset, requests are unbounded; this may violate the remote API policy")
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Wait blocks until a request is allowed or the context is canceled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow returns true if a request is allowed without waiting, consuming
// one token. It returns false if no tokens are available.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// SetRate updates the rate limit while preserving the current burst size.
// Used to adjust the rate when a credential changes the remote's policy
// (e.g. an NCBI API key raises 3 req/s to 10 req/s).
func (r *RateLimiter) SetRate(ratePerSecond float64) {
	r.limiter.SetLimit(rate.Limit(ratePerSecond))
}

// Tokens returns the current number of available tokens. Tokens never go
// negative and never exceed the configured burst.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}

// Burst returns the configured burst size.
func (r *RateLimiter) Burst() int {
	return r.limiter.Burst()
}
