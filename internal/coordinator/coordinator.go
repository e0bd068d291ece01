// Package coordinator implements the fetch façade over the source
// adapters: request validation, response caching, request coalescing,
// retry with backoff, and cross-source fan-out.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scidex/scifetch/internal/domain"
	"github.com/scidex/scifetch/internal/observability"
	"github.com/scidex/scifetch/internal/sources"
)

// DefaultRequestTimeout bounds a single coordinator request, covering all
// retry attempts.
const DefaultRequestTimeout = 30 * time.Second

// DefaultMaxPages bounds how many pages SearchPages walks when the caller
// does not set a limit.
const DefaultMaxPages = 10

// Config holds coordinator tuning.
type Config struct {
	// CacheSize bounds the number of cached responses.
	CacheSize int

	// DefaultTTL is the cached-response lifetime for sources without an
	// entry in TTLBySource.
	DefaultTTL time.Duration

	// TTLBySource overrides the cache TTL per source.
	TTLBySource map[domain.SourceType]time.Duration

	// RequestTimeout bounds a single request including retries.
	RequestTimeout time.Duration

	// Retry is the backoff schedule for retryable failures.
	Retry RetryPolicy
}

// Result is the uniform response for a coordinator request. Exactly one of
// Search, Record, or Links is set, matching the operation.
type Result struct {
	Source    domain.SourceType     `json:"source"`
	Operation domain.Operation      `json:"operation"`
	Search    *sources.SearchResult `json:"search,omitempty"`
	Record    *domain.Record        `json:"record,omitempty"`
	Links     []domain.Link         `json:"links,omitempty"`

	// FromCache reports whether the result was served from the response
	// cache without touching the source.
	FromCache bool `json:"from_cache"`

	// Attempts is the number of wire attempts the request took. Zero for
	// cached responses.
	Attempts int `json:"attempts"`
}

// FanOutResult carries one source's outcome from a fan-out request.
// A failing source never disturbs its siblings' results.
type FanOutResult struct {
	Source domain.SourceType `json:"source"`
	Result *Result           `json:"result,omitempty"`
	Err    error             `json:"-"`
}

// Coordinator is the façade in front of the source adapters. It is safe
// for concurrent use.
type Coordinator struct {
	registry *sources.Registry
	cache    *Cache
	flights  *flightGroup
	config   Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// New creates a coordinator over the given source registry. metrics may be
// nil to disable instrumentation.
func New(registry *sources.Registry, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) (*Coordinator, error) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	cache, err := NewCache(cfg.CacheSize, cfg.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	return &Coordinator{
		registry: registry,
		cache:    cache,
		flights:  newFlightGroup(),
		config:   cfg,
		logger:   logger.With().Str("component", "coordinator").Logger(),
		metrics:  metrics,
	}, nil
}

// Cache exposes the response cache, for tests and administrative purging.
func (c *Coordinator) Cache() *Cache {
	return c.cache
}

// Request executes a single validated request: cache lookup, coalescing
// with identical in-flight requests, then a retried fetch against the
// source adapter. Successful results are cached; failures never are.
func (c *Coordinator) Request(ctx context.Context, spec domain.RequestSpec) (*Result, error) {
	start := time.Now()

	if err := spec.Validate(); err != nil {
		c.record(spec, err, start)
		return nil, err
	}

	source := string(spec.Source)
	key := spec.CacheKey()

	if cached, ok := c.cache.Get(key); ok {
		if c.metrics != nil {
			c.metrics.RecordCacheHit(source)
		}
		c.record(spec, nil, start)
		return cached, nil
	}
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(source)
	}

	result, coalesced, err := c.flights.Do(ctx, key, func(fctx context.Context) (*Result, error) {
		res, execErr := c.execute(fctx, spec)
		if execErr != nil {
			return nil, execErr
		}
		c.cache.Set(key, res, c.ttlFor(spec.Source))
		return res, nil
	})

	if coalesced && c.metrics != nil {
		c.metrics.RecordFlightCoalesced(source)
	}

	c.record(spec, err, start)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FanOut runs the spec's operation against several sources concurrently,
// isolating each source's outcome. An empty srcs list targets every
// enabled registered source. The spec's Source field is overwritten per
// target.
func (c *Coordinator) FanOut(ctx context.Context, spec domain.RequestSpec, srcs []domain.SourceType) []FanOutResult {
	start := time.Now()

	if len(srcs) == 0 {
		for _, client := range c.registry.EnabledClients() {
			srcs = append(srcs, client.SourceType())
		}
	}
	if len(srcs) == 0 {
		return nil
	}

	results := make([]FanOutResult, len(srcs))
	var wg sync.WaitGroup
	for i, src := range srcs {
		wg.Add(1)
		go func(i int, src domain.SourceType) {
			defer wg.Done()

			perSource := spec
			perSource.Source = src

			res, err := c.Request(ctx, perSource)
			results[i] = FanOutResult{Source: src, Result: res, Err: err}
		}(i, src)
	}
	wg.Wait()

	if c.metrics != nil {
		c.metrics.RecordFanout(time.Since(start).Seconds())
	}
	return results
}

// PagedResult aggregates a multi-page search. After a mid-walk failure the
// records gathered so far are still returned, and NextOffset plus
// Continuation mark where a follow-up call can resume.
type PagedResult struct {
	Source       domain.SourceType `json:"source"`
	Records      []*domain.Record  `json:"records"`
	Pages        int               `json:"pages"`
	NextOffset   int               `json:"next_offset"`
	Continuation string            `json:"continuation,omitempty"`
	Exhausted    bool              `json:"exhausted"`
}

// SearchPages drains a search page by page until the result set is
// exhausted or maxPages pages have been fetched. Every page is an ordinary
// coordinator request, so pages pass through the cache, coalescing, and
// retry layers individually. A failing page returns the pages delivered
// before it alongside the error.
func (c *Coordinator) SearchPages(ctx context.Context, spec domain.RequestSpec, maxPages int) (*PagedResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Operation != domain.OperationSearch {
		return nil, fmt.Errorf("%w: operation %s cannot be paged", domain.ErrInvalidInput, spec.Operation)
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	pager := sources.NewPager(func(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
		pageSpec := spec
		pageSpec.Offset = params.Offset
		pageSpec.Continuation = params.Continuation
		res, err := c.Request(ctx, pageSpec)
		if err != nil {
			return nil, err
		}
		return res.Search, nil
	}, sources.SearchParams{Offset: spec.Offset, Continuation: spec.Continuation})

	paged := &PagedResult{
		Source:       spec.Source,
		NextOffset:   spec.Offset,
		Continuation: spec.Continuation,
	}
	for paged.Pages < maxPages && !pager.Done() {
		records, err := pager.Next(ctx)
		if err != nil {
			return paged, err
		}
		paged.Records = append(paged.Records, records...)
		paged.Pages++
		paged.NextOffset = pager.Offset()
		paged.Continuation = pager.Continuation()
	}
	paged.Exhausted = pager.Done()
	return paged, nil
}

// execute performs the wire fetch with the retry schedule. It runs on the
// flight context, detached from any single caller.
func (c *Coordinator) execute(ctx context.Context, spec domain.RequestSpec) (*Result, error) {
	client := c.registry.Get(spec.Source)
	if client == nil || !client.IsEnabled() {
		return nil, domain.NewFatalError(spec.Source, fmt.Errorf("source not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	logger := observability.WithFetchContext(c.logger, string(spec.Source), string(spec.Operation))

	result := &Result{Source: spec.Source, Operation: spec.Operation}
	attempts, err := c.config.Retry.Execute(ctx, func(ctx context.Context) error {
		return c.dispatch(ctx, client, spec, result)
	}, func(attempt int, delay time.Duration, attemptErr error) {
		if c.metrics != nil {
			c.metrics.RecordRetry(string(spec.Source))
			if domain.ErrorKind(attemptErr) == "rate_limited" {
				c.metrics.RecordRateLimited(string(spec.Source))
			}
		}
		logger.Warn().
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(attemptErr).
			Msg("retrying after failure")
	})
	if err != nil {
		logger.Error().Int("attempts", attempts).Err(err).Msg("request failed")
		return nil, err
	}

	result.Attempts = attempts
	if c.metrics != nil {
		c.metrics.RecordRecordsFetched(string(spec.Source), result.recordCount())
	}
	logger.Debug().Int("attempts", attempts).Msg("request completed")
	return result, nil
}

// dispatch routes one attempt to the adapter method matching the
// operation. Optional capabilities are resolved by interface assertion;
// a source without the capability either falls back (metadata) or rejects
// the operation (links).
func (c *Coordinator) dispatch(ctx context.Context, client sources.SourceClient, spec domain.RequestSpec, result *Result) error {
	switch spec.Operation {
	case domain.OperationSearch:
		params, err := searchParamsFromSpec(spec)
		if err != nil {
			return err
		}
		search, err := client.Search(ctx, params)
		if err != nil {
			return err
		}
		result.Search = search
		return nil

	case domain.OperationFetch:
		record, err := client.GetByID(ctx, spec.ID)
		if err != nil {
			return err
		}
		result.Record = record
		return nil

	case domain.OperationMetadata:
		// Sources with a cheap summary endpoint use it; the rest serve
		// metadata from the full record.
		if summarizer, ok := client.(sources.Summarizer); ok {
			record, err := summarizer.GetSummary(ctx, spec.ID)
			if err != nil {
				return err
			}
			result.Record = record
			return nil
		}
		record, err := client.GetByID(ctx, spec.ID)
		if err != nil {
			return err
		}
		result.Record = record
		return nil

	case domain.OperationLinks:
		linker, ok := client.(sources.Linker)
		if !ok {
			return fmt.Errorf("%w: source %s does not support the links operation",
				domain.ErrInvalidInput, spec.Source)
		}
		links, err := linker.GetLinks(ctx, spec.ID)
		if err != nil {
			return err
		}
		result.Links = links
		return nil

	default:
		return fmt.Errorf("%w: unknown operation %q", domain.ErrInvalidInput, spec.Operation)
	}
}

// ttlFor returns the cache TTL for a source, falling back to the default.
func (c *Coordinator) ttlFor(source domain.SourceType) time.Duration {
	if ttl, ok := c.config.TTLBySource[source]; ok && ttl > 0 {
		return ttl
	}
	return c.config.DefaultTTL
}

// record emits the per-request metric sample.
func (c *Coordinator) record(spec domain.RequestSpec, err error, start time.Time) {
	if c.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = domain.ErrorKind(err)
	}
	c.metrics.RecordRequest(string(spec.Source), string(spec.Operation), status, time.Since(start).Seconds())
}

// recordCount returns how many records the result carries, for metrics.
func (r *Result) recordCount() int {
	switch {
	case r.Search != nil:
		return len(r.Search.Records)
	case r.Record != nil:
		return 1
	default:
		return len(r.Links)
	}
}

// searchParamsFromSpec translates the validated spec into adapter search
// parameters. Filter values are strings on the wire; dates use ISO 8601
// (2006-01-02).
func searchParamsFromSpec(spec domain.RequestSpec) (sources.SearchParams, error) {
	params := sources.SearchParams{
		Query:        spec.Query,
		MaxResults:   spec.Limit,
		Offset:       spec.Offset,
		Continuation: spec.Continuation,
	}

	for key, value := range spec.Filters {
		switch strings.ToLower(key) {
		case "field":
			params.Field = value
		case "date_from":
			t, err := time.Parse("2006-01-02", value)
			if err != nil {
				return params, fmt.Errorf("%w: invalid date_from %q", domain.ErrInvalidInput, value)
			}
			params.DateFrom = &t
		case "date_to":
			t, err := time.Parse("2006-01-02", value)
			if err != nil {
				return params, fmt.Errorf("%w: invalid date_to %q", domain.ErrInvalidInput, value)
			}
			params.DateTo = &t
		default:
			return params, fmt.Errorf("%w: unknown filter %q", domain.ErrInvalidInput, key)
		}
	}

	return params, nil
}
