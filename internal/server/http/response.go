package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/scidex/scifetch/internal/coordinator"
	"github.com/scidex/scifetch/internal/domain"
	"github.com/scidex/scifetch/internal/sources"
)

// errorResponse is the uniform JSON error body.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// searchSourceResponse is one source's slice of a fan-out search.
type searchSourceResponse struct {
	Source       string           `json:"source"`
	Records      []*domain.Record `json:"records,omitempty"`
	TotalResults int              `json:"total_results"`
	HasMore      bool             `json:"has_more"`
	NextOffset   int              `json:"next_offset,omitempty"`
	Continuation string           `json:"continuation,omitempty"`
	FromCache    bool             `json:"from_cache"`
	Error        string           `json:"error,omitempty"`
	ErrorKind    string           `json:"error_kind,omitempty"`
}

// searchResponse is the JSON body for POST /api/v1/search.
type searchResponse struct {
	Query   string                 `json:"query"`
	Results []searchSourceResponse `json:"results"`
}

// searchPagesResponse is the JSON body for POST /api/v1/search/pages.
// Error and ErrorKind are set when the walk failed partway; Records then
// holds the pages delivered before the failure.
type searchPagesResponse struct {
	Source       string           `json:"source"`
	Records      []*domain.Record `json:"records"`
	Pages        int              `json:"pages"`
	NextOffset   int              `json:"next_offset"`
	Continuation string           `json:"continuation,omitempty"`
	Exhausted    bool             `json:"exhausted"`
	Error        string           `json:"error,omitempty"`
	ErrorKind    string           `json:"error_kind,omitempty"`
}

// recordResponse is the JSON body for the record endpoints.
type recordResponse struct {
	Source    string         `json:"source"`
	Record    *domain.Record `json:"record,omitempty"`
	Links     []domain.Link  `json:"links,omitempty"`
	FromCache bool           `json:"from_cache"`
	Attempts  int            `json:"attempts"`
}

// sourceInfoResponse describes one registered source.
type sourceInfoResponse struct {
	Source       string   `json:"source"`
	Name         string   `json:"name"`
	Enabled      bool     `json:"enabled"`
	Capabilities []string `json:"capabilities"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

// writeDomainError maps a taxonomy error onto an HTTP response. Throttle
// responses carry a Retry-After header when the source supplied a wait.
func writeDomainError(w http.ResponseWriter, err error) {
	var rlErr *domain.RateLimitError
	if errors.As(err, &rlErr) && rlErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(rlErr.RetryAfter/time.Second)))
	}
	writeJSON(w, statusForError(err), errorResponse{
		Error: err.Error(),
		Kind:  domain.ErrorKind(err),
	})
}

// statusForError maps the error taxonomy to HTTP status codes. Upstream
// failures surface as gateway errors since the fault is not the caller's.
func statusForError(err error) int {
	switch domain.ErrorKind(err) {
	case "invalid_input":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "rate_limited":
		return http.StatusTooManyRequests
	case "auth", "parse", "transient":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fanOutToResponse converts fan-out outcomes into the search response body.
func fanOutToResponse(query string, outcomes []coordinator.FanOutResult) searchResponse {
	resp := searchResponse{Query: query, Results: make([]searchSourceResponse, 0, len(outcomes))}
	for _, outcome := range outcomes {
		entry := searchSourceResponse{Source: string(outcome.Source)}
		if outcome.Err != nil {
			entry.Error = outcome.Err.Error()
			entry.ErrorKind = domain.ErrorKind(outcome.Err)
		} else if outcome.Result != nil {
			entry.FromCache = outcome.Result.FromCache
			if sr := outcome.Result.Search; sr != nil {
				entry.Records = sr.Records
				entry.TotalResults = sr.TotalResults
				entry.HasMore = sr.HasMore
				entry.NextOffset = sr.NextOffset
				entry.Continuation = sr.Continuation
			}
		}
		resp.Results = append(resp.Results, entry)
	}
	return resp
}

// pagedToResponse converts a paged-search outcome into the response body.
func pagedToResponse(paged *coordinator.PagedResult, err error) searchPagesResponse {
	resp := searchPagesResponse{
		Source:       string(paged.Source),
		Records:      paged.Records,
		Pages:        paged.Pages,
		NextOffset:   paged.NextOffset,
		Continuation: paged.Continuation,
		Exhausted:    paged.Exhausted,
	}
	if err != nil {
		resp.Error = err.Error()
		resp.ErrorKind = domain.ErrorKind(err)
	}
	return resp
}

// sourceInfo describes a client's capabilities via interface assertion.
func sourceInfo(client sources.SourceClient) sourceInfoResponse {
	caps := []string{"search", "fetch", "metadata"}
	if _, ok := client.(sources.Summarizer); ok {
		caps = append(caps, "summary")
	}
	if _, ok := client.(sources.Linker); ok {
		caps = append(caps, "links")
	}
	return sourceInfoResponse{
		Source:       string(client.SourceType()),
		Name:         client.Name(),
		Enabled:      client.IsEnabled(),
		Capabilities: caps,
	}
}
