// Package sources provides interfaces and shared plumbing for the external
// scientific database clients.
//
// Each database (PubMed, arXiv, MedGen, ClinVar, CrossRef) implements the
// SourceClient interface, allowing the fetch coordinator to dispatch and
// fan out requests with a unified API. New sources are added by registering
// a new implementation, never by branching inside the coordinator.
//
// Example usage:
//
//	client := pubmed.New(cfg)
//	params := sources.SearchParams{Query: "CRISPR gene editing", MaxResults: 50}
//	result, err := client.Search(ctx, params)
package sources

import (
	"context"
	"time"

	"github.com/scidex/scifetch/internal/domain"
)

// SearchParams defines the parameters for searching a source.
// All fields except Query are optional.
type SearchParams struct {
	// Query is the search query string (required). The format may vary by
	// source: some support boolean operators or field-specific searches.
	Query string

	// DateFrom filters records published on or after this date.
	// If nil, no lower date bound is applied.
	DateFrom *time.Time

	// DateTo filters records published on or before this date.
	// If nil, no upper date bound is applied.
	DateTo *time.Time

	// Field restricts the query to a source-specific field (e.g. "title").
	Field string

	// MaxResults limits the number of records returned in a single page.
	// A value of 0 uses the source's default limit.
	MaxResults int

	// Offset specifies the starting position for paginated results.
	Offset int

	// Continuation is an opaque token from a previous SearchResult that
	// lets the source resume server-side paging state (e.g. the PubMed
	// history server). When set, it takes precedence over re-running the
	// query from scratch.
	Continuation string
}

// SearchResult contains the results from a source search operation.
type SearchResult struct {
	// Records contains the records returned by this page of the search.
	Records []*domain.Record

	// TotalResults is the total number of records matching the query,
	// regardless of pagination. May be an estimate for large result sets.
	TotalResults int

	// HasMore indicates whether additional results are available beyond
	// the current page.
	HasMore bool

	// NextOffset is the offset to use for the next page.
	// Only meaningful when HasMore is true.
	NextOffset int

	// Continuation is an opaque token that resumes source-side paging
	// state on the next call. Empty for sources that page by offset only.
	Continuation string

	// Source identifies which source produced these results.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search, including
	// network latency and response parsing.
	SearchDuration time.Duration
}

// SourceClient defines the interface that all source clients must implement.
type SourceClient interface {
	// Search queries the source for records matching the given parameters.
	// Implementations must respect context cancellation, consume one rate
	// limiter token per wire call, and translate failures into the
	// domain error taxonomy.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// GetByID retrieves a specific record by its source-native identifier.
	// Returns an error wrapping domain.ErrNotFound when the remote reports
	// no such record.
	GetByID(ctx context.Context, id string) (*domain.Record, error)

	// SourceType returns the type identifier for this source.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this source, used for
	// logging, metrics, and error messages.
	Name() string

	// IsEnabled returns whether this source is currently enabled. A source
	// may be disabled by configuration or a missing credential.
	IsEnabled() bool
}

// Summarizer is an optional capability for sources with a cheap summary
// endpoint (e.g. Entrez esummary). The coordinator uses it for the
// metadata operation and falls back to GetByID when absent.
type Summarizer interface {
	GetSummary(ctx context.Context, id string) (*domain.Record, error)
}

// Linker is an optional capability for sources that can resolve related
// links for a record (e.g. Entrez elink).
type Linker interface {
	GetLinks(ctx context.Context, id string) ([]domain.Link, error)
}
