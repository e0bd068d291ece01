package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scidex/scifetch/internal/domain"
)

func newTestClient(t *testing.T, cfg HTTPClientConfig) *HTTPClient {
	t.Helper()
	if cfg.Source == "" {
		cfg.Source = domain.SourceTypePubMed
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1000
		cfg.BurstSize = 1000
	}
	return NewHTTPClient(cfg, zerolog.Nop())
}

func TestHTTPClient_Do(t *testing.T) {
	t.Run("sets user agent and api key header", func(t *testing.T) {
		var gotUA, gotKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotKey = r.Header.Get("X-API-Key")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newTestClient(t, HTTPClientConfig{
			UserAgent:    "scifetch-test/1.0",
			APIKey:       "secret",
			APIKeyHeader: "X-API-Key",
		})

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "scifetch-test/1.0", gotUA)
		assert.Equal(t, "secret", gotKey)
	})

	t.Run("consumes a rate limiter token per request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewHTTPClient(HTTPClientConfig{
			Source:    domain.SourceTypeArXiv,
			RateLimit: 100,
			BurstSize: 2,
		}, zerolog.Nop())

		before := client.RateLimiter().Tokens()

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Less(t, client.RateLimiter().Tokens(), before)
	})

	t.Run("classifies connection failure as transient", func(t *testing.T) {
		client := newTestClient(t, HTTPClientConfig{})

		// Port 1 is almost certainly closed.
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://127.0.0.1:1/", nil)
		require.NoError(t, err)

		_, err = client.Do(req)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTransient)
	})

	t.Run("propagates caller cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		client := newTestClient(t, HTTPClientConfig{})

		ctx, cancel := context.WithCancel(context.Background())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err = client.Do(req)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClassifyStatus(t *testing.T) {
	makeResp := func(status int, headers map[string]string) *http.Response {
		rec := httptest.NewRecorder()
		for k, v := range headers {
			rec.Header().Set(k, v)
		}
		rec.WriteHeader(status)
		resp := rec.Result()
		resp.Request = httptest.NewRequest(http.MethodGet, "http://example.org/works/x", nil)
		return resp
	}

	t.Run("404 is not found", func(t *testing.T) {
		err := ClassifyStatus(domain.SourceTypeCrossRef, makeResp(http.StatusNotFound, nil))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("401 and 403 are auth errors", func(t *testing.T) {
		assert.ErrorIs(t, ClassifyStatus(domain.SourceTypePubMed, makeResp(http.StatusUnauthorized, nil)), domain.ErrAuth)
		assert.ErrorIs(t, ClassifyStatus(domain.SourceTypePubMed, makeResp(http.StatusForbidden, nil)), domain.ErrAuth)
	})

	t.Run("429 is rate limited and carries Retry-After", func(t *testing.T) {
		err := ClassifyStatus(domain.SourceTypePubMed,
			makeResp(http.StatusTooManyRequests, map[string]string{"Retry-After": "2"}))
		require.ErrorIs(t, err, domain.ErrRateLimited)

		var rlErr *domain.RateLimitError
		require.ErrorAs(t, err, &rlErr)
		assert.Equal(t, 2*time.Second, rlErr.RetryAfter)
	})

	t.Run("5xx is transient", func(t *testing.T) {
		assert.ErrorIs(t, ClassifyStatus(domain.SourceTypePubMed, makeResp(http.StatusBadGateway, nil)), domain.ErrTransient)
		assert.ErrorIs(t, ClassifyStatus(domain.SourceTypePubMed, makeResp(http.StatusServiceUnavailable, nil)), domain.ErrTransient)
	})

	t.Run("other statuses are fatal", func(t *testing.T) {
		assert.ErrorIs(t, ClassifyStatus(domain.SourceTypePubMed, makeResp(http.StatusTeapot, nil)), domain.ErrFatal)
	})
}

func TestRetryAfterDelay(t *testing.T) {
	makeResp := func(retryAfter string) *http.Response {
		rec := httptest.NewRecorder()
		if retryAfter != "" {
			rec.Header().Set("Retry-After", retryAfter)
		}
		rec.WriteHeader(http.StatusTooManyRequests)
		return rec.Result()
	}

	assert.Equal(t, time.Duration(0), RetryAfterDelay(makeResp("")))
	assert.Equal(t, 5*time.Second, RetryAfterDelay(makeResp("5")))
	assert.Equal(t, time.Duration(0), RetryAfterDelay(makeResp("0")))
	assert.Equal(t, time.Duration(0), RetryAfterDelay(makeResp("garbage")))

	future := time.Now().Add(10 * time.Second).UTC().Format(http.TimeFormat)
	delay := RetryAfterDelay(makeResp(future))
	assert.Greater(t, delay, 5*time.Second)
	assert.LessOrEqual(t, delay, 10*time.Second)
}
