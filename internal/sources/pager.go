package sources

import (
	"context"

	"github.com/scidex/scifetch/internal/domain"
)

// SearchFunc fetches one page of search results. An adapter's Search
// method satisfies it directly; the coordinator wraps each page in its
// cache and retry layers before handing it to a Pager.
type SearchFunc func(ctx context.Context, params SearchParams) (*SearchResult, error)

// Pager walks a search result set page by page, producing records lazily
// as pages are fetched. Each source's pagination mechanism (offset/limit
// or the PubMed history server) stays hidden behind the continuation token
// the source itself issues.
//
// A failing page surfaces its error from Next after all previously fetched
// pages have already been delivered; the caller holds partial results and
// can resume by constructing a new Pager from Offset and Continuation.
type Pager struct {
	search SearchFunc
	params SearchParams
	done   bool
}

// NewPager creates a pager over search for the given parameters. Paging is
// restartable: set params.Offset (and Continuation, if one was issued) to
// resume from an explicit position.
func NewPager(search SearchFunc, params SearchParams) *Pager {
	return &Pager{search: search, params: params}
}

// Next fetches and returns the next page of records. It returns nil, nil
// when the result set is exhausted.
func (p *Pager) Next(ctx context.Context) ([]*domain.Record, error) {
	if p.done {
		return nil, nil
	}

	result, err := p.search(ctx, p.params)
	if err != nil {
		p.done = true
		return nil, err
	}

	if !result.HasMore || len(result.Records) == 0 {
		p.done = true
	}
	p.params.Offset = result.NextOffset
	p.params.Continuation = result.Continuation

	return result.Records, nil
}

// Offset returns the offset the next page would start from, for resuming
// after a failure.
func (p *Pager) Offset() int {
	return p.params.Offset
}

// Continuation returns the token the next page would be fetched with.
func (p *Pager) Continuation() string {
	return p.params.Continuation
}

// Done reports whether the result set is exhausted or a page has failed.
func (p *Pager) Done() bool {
	return p.done
}
