package coordinator

import (
	"context"
	"sync"
)

// flight is one in-progress fetch shared by every caller waiting on the
// same cache key.
type flight struct {
	done    chan struct{}
	cancel  context.CancelFunc
	waiters int

	result *Result
	err    error
}

// flightGroup collapses concurrent requests for the same key into a single
// upstream fetch. It differs from a plain single-flight in how waiter
// cancellation works: a cancelled waiter detaches immediately and gets its
// own context error, while the fetch keeps running for the remaining
// waiters. Only when the LAST waiter detaches is the underlying fetch
// aborted.
type flightGroup struct {
	mu      sync.Mutex
	flights map[string]*flight
}

func newFlightGroup() *flightGroup {
	return &flightGroup{flights: make(map[string]*flight)}
}

// Do returns the result of fn for key, coalescing concurrent callers onto
// one execution. The boolean reports whether this caller attached to an
// already-running fetch.
func (g *flightGroup) Do(ctx context.Context, key string, fn func(ctx context.Context) (*Result, error)) (*Result, bool, error) {
	g.mu.Lock()
	f, coalesced := g.flights[key]
	if !coalesced {
		// The fetch must outlive the caller that started it, because later
		// waiters may still want the result after this caller cancels. It
		// is tied to a detached context that only the last waiter's
		// departure cancels.
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{
			done:   make(chan struct{}),
			cancel: cancel,
		}
		g.flights[key] = f

		go func() {
			f.result, f.err = fn(fctx)
			close(f.done)

			g.mu.Lock()
			if g.flights[key] == f {
				delete(g.flights, key)
			}
			g.mu.Unlock()
			cancel()
		}()
	}
	f.waiters++
	g.mu.Unlock()

	select {
	case <-f.done:
		g.detach(key, f)
		return f.result, coalesced, f.err

	case <-ctx.Done():
		g.detach(key, f)
		return nil, coalesced, ctx.Err()
	}
}

// detach removes one waiter from f; the last waiter out aborts the fetch.
func (g *flightGroup) detach(key string, f *flight) {
	g.mu.Lock()
	f.waiters--
	last := f.waiters == 0
	if last {
		if g.flights[key] == f {
			delete(g.flights, key)
		}
	}
	g.mu.Unlock()

	if last {
		f.cancel()
	}
}
