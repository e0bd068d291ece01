package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/scidex/scifetch/internal/domain"
)

// HTTPClientConfig configures the HTTP client shared by source adapters.
type HTTPClientConfig struct {
	// Source identifies the adapter this client serves, for error context.
	Source domain.SourceType

	// Timeout is the per-request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Zero disables limiting
	// (with a logged warning).
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g. "X-API-Key").
	// Sources that pass keys as query parameters leave this empty and set
	// the parameter themselves.
	APIKeyHeader string
}

// HTTPClient wraps http.Client with per-source rate limiting and
// error classification. Retries are deliberately NOT performed here: the
// coordinator's retry policy drives them, so that each retry attempt
// consumes a fresh rate limiter token before going to the wire.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new rate-limited HTTP client.
func NewHTTPClient(cfg HTTPClientConfig, logger zerolog.Logger) *HTTPClient {
	// Apply defaults
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "scifetch/1.0"
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize,
			logger.With().Str("source", string(cfg.Source)).Logger()),
		config: cfg,
	}
}

// Do executes an HTTP request. It waits for a rate limiter token, sets the
// User-Agent and optional API key headers, and classifies connection-level
// failures into the domain error taxonomy. Responses are returned as-is;
// callers classify non-200 statuses via ClassifyStatus.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	if err := c.rateLimiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Caller-driven cancellation propagates untouched so the retry
		// policy stops immediately.
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, domain.NewTransientError(c.config.Source, err)
	}

	return resp, nil
}

// RateLimiter exposes the underlying limiter, for tests and for adapters
// that adjust the rate after credential changes.
func (c *HTTPClient) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// ClassifyStatus translates a non-success HTTP response into a domain
// error. The response body is drained and closed; at most a truncated
// slice of it ends up in the error message, never any credential.
func ClassifyStatus(source domain.SourceType, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewNotFoundError(source, resp.Request.URL.Path)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewAuthError(source, http.StatusText(resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewRateLimitError(source, RetryAfterDelay(resp))
	case resp.StatusCode >= 500:
		return domain.NewTransientError(source,
			fmt.Errorf("server returned status %d", resp.StatusCode))
	default:
		return domain.NewFatalError(source,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncateBody(body)))
	}
}

// ReadBody reads and closes a response body, bounded to 10 MiB to protect
// against runaway payloads from a misbehaving upstream.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// RetryAfterDelay parses the Retry-After header of a 429 response.
// Returns 0 when the header is absent or unparseable, meaning the caller
// should fall back to its own backoff schedule.
func RetryAfterDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	// Try to parse as seconds
	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return 0
	}

	// Try to parse as HTTP date
	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return 0
}

// truncateBody trims an error body to a size suitable for error messages.
func truncateBody(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
