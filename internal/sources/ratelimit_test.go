package sources

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter(t *testing.T) {
	t.Run("creates limiter with specified rate and burst", func(t *testing.T) {
		rl := NewRateLimiter(10, 5, zerolog.Nop())

		require.NotNil(t, rl)
		for i := 0; i < 5; i++ {
			assert.True(t, rl.Allow(), "should allow request %d within burst", i+1)
		}
		assert.False(t, rl.Allow())
	})

	t.Run("creates limiter with PubMed rate (3 req/sec)", func(t *testing.T) {
		rl := NewRateLimiter(3, 3, zerolog.Nop())

		for i := 0; i < 3; i++ {
			assert.True(t, rl.Allow())
		}
		assert.False(t, rl.Allow())
	})

	t.Run("creates limiter with arXiv rate (1 req per 3 sec)", func(t *testing.T) {
		rl := NewRateLimiter(1.0/3.0, 1, zerolog.Nop())

		assert.True(t, rl.Allow())
		assert.False(t, rl.Allow())
	})

	t.Run("zero rate disables limiting", func(t *testing.T) {
		rl := NewRateLimiter(0, 0, zerolog.Nop())

		for i := 0; i < 100; i++ {
			assert.True(t, rl.Allow())
		}
	})
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Run("burst allows instant requests", func(t *testing.T) {
		rl := NewRateLimiter(100, 5, zerolog.Nop())

		ctx := context.Background()
		start := time.Now()

		for i := 0; i < 5; i++ {
			err := rl.Wait(ctx)
			require.NoError(t, err)
		}

		elapsed := time.Since(start)
		assert.Less(t, elapsed, 50*time.Millisecond,
			"burst requests should be nearly instant, took %v", elapsed)
	})

	t.Run("waits for token after burst exhausted", func(t *testing.T) {
		// 10 requests per second = 100ms between requests
		rl := NewRateLimiter(10, 1, zerolog.Nop())

		ctx := context.Background()

		require.NoError(t, rl.Wait(ctx))

		start := time.Now()
		require.NoError(t, rl.Wait(ctx))
		elapsed := time.Since(start)

		assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond,
			"should wait for token, waited only %v", elapsed)
	})

	t.Run("respects context deadline", func(t *testing.T) {
		rl := NewRateLimiter(1, 1, zerolog.Nop())

		assert.True(t, rl.Allow())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := rl.Wait(ctx)
		require.Error(t, err)
	})
}

func TestRateLimiter_TokenBounds(t *testing.T) {
	t.Run("tokens never negative nor above capacity under concurrency", func(t *testing.T) {
		const burst = 4
		rl := NewRateLimiter(200, burst, zerolog.Nop())

		ctx := context.Background()
		var wg sync.WaitGroup
		stop := make(chan struct{})

		// Hammer the limiter from many goroutines while sampling Tokens.
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
					}
					_ = rl.Wait(ctx)
				}
			}()
		}

		deadline := time.Now().Add(200 * time.Millisecond)
		for time.Now().Before(deadline) {
			tokens := rl.Tokens()
			assert.GreaterOrEqual(t, tokens, 0.0)
			assert.LessOrEqual(t, tokens, float64(burst))
			time.Sleep(time.Millisecond)
		}
		close(stop)
		wg.Wait()
	})
}

func TestRateLimiter_SetRate(t *testing.T) {
	rl := NewRateLimiter(3, 3, zerolog.Nop())
	rl.SetRate(10)

	// Burst is preserved.
	assert.Equal(t, 3, rl.Burst())
}
