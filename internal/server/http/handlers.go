package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/scidex/scifetch/internal/domain"
)

// Validation constants.
const (
	maxQueryLength     = 2000
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// searchRequest is the JSON request body for POST /api/v1/search.
type searchRequest struct {
	Query        string            `json:"query" validate:"required,max=2000"`
	Sources      []string          `json:"sources,omitempty" validate:"dive,oneof=pubmed arxiv medgen clinvar crossref"`
	Limit        int               `json:"limit,omitempty" validate:"gte=0,lte=1000"`
	Offset       int               `json:"offset,omitempty" validate:"gte=0"`
	Filters      map[string]string `json:"filters,omitempty"`
	Continuation string            `json:"continuation,omitempty"`
}

// searchHandler handles POST /api/v1/search: a validated fan-out search
// across the requested sources, defaulting to every enabled source.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req searchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid search request: %v", err))
		return
	}

	var srcs []domain.SourceType
	for _, name := range req.Sources {
		st, ok := domain.ParseSourceType(name)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported source: %s", name))
			return
		}
		srcs = append(srcs, st)
	}

	spec := domain.RequestSpec{
		Operation:    domain.OperationSearch,
		Query:        req.Query,
		Limit:        req.Limit,
		Offset:       req.Offset,
		Filters:      req.Filters,
		Continuation: req.Continuation,
	}

	outcomes := s.coord.FanOut(r.Context(), spec, srcs)
	if len(outcomes) == 0 {
		writeError(w, http.StatusServiceUnavailable, "no sources available")
		return
	}

	writeJSON(w, http.StatusOK, fanOutToResponse(req.Query, outcomes))
}

// searchPagesRequest is the JSON request body for POST /api/v1/search/pages.
type searchPagesRequest struct {
	Source   string            `json:"source" validate:"required,oneof=pubmed arxiv medgen clinvar crossref"`
	Query    string            `json:"query" validate:"required,max=2000"`
	Limit    int               `json:"limit,omitempty" validate:"gte=0,lte=1000"`
	Offset   int               `json:"offset,omitempty" validate:"gte=0"`
	Filters  map[string]string `json:"filters,omitempty"`
	MaxPages int               `json:"max_pages,omitempty" validate:"gte=0,lte=50"`
}

// searchPagesHandler handles POST /api/v1/search/pages: a single-source
// search drained page by page. A mid-walk failure still returns the pages
// fetched before it, with the error and a resumable offset.
func (s *Server) searchPagesHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req searchPagesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid paged search request: %v", err))
		return
	}

	source, ok := domain.ParseSourceType(req.Source)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported source: %s", req.Source))
		return
	}

	paged, err := s.coord.SearchPages(r.Context(), domain.RequestSpec{
		Source:    source,
		Operation: domain.OperationSearch,
		Query:     req.Query,
		Limit:     req.Limit,
		Offset:    req.Offset,
		Filters:   req.Filters,
	}, req.MaxPages)
	if err != nil && (paged == nil || len(paged.Records) == 0) {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pagedToResponse(paged, err))
}

// getRecordHandler handles GET /api/v1/records/{source}/{id}.
func (s *Server) getRecordHandler(w http.ResponseWriter, r *http.Request) {
	s.recordOperation(w, r, domain.OperationFetch)
}

// getSummaryHandler handles GET /api/v1/records/{source}/{id}/summary.
func (s *Server) getSummaryHandler(w http.ResponseWriter, r *http.Request) {
	s.recordOperation(w, r, domain.OperationMetadata)
}

// getLinksHandler handles GET /api/v1/records/{source}/{id}/links.
func (s *Server) getLinksHandler(w http.ResponseWriter, r *http.Request) {
	s.recordOperation(w, r, domain.OperationLinks)
}

// recordOperation runs a single-record coordinator request from the URL
// path parameters.
func (s *Server) recordOperation(w http.ResponseWriter, r *http.Request, op domain.Operation) {
	source, ok := domain.ParseSourceType(chi.URLParam(r, "source"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported source: %s", chi.URLParam(r, "source")))
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "record id is required")
		return
	}

	result, err := s.coord.Request(r.Context(), domain.RequestSpec{
		Source:    source,
		Operation: op,
		ID:        id,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recordResponse{
		Source:    string(result.Source),
		Record:    result.Record,
		Links:     result.Links,
		FromCache: result.FromCache,
		Attempts:  result.Attempts,
	})
}

// listSourcesHandler handles GET /api/v1/sources.
func (s *Server) listSourcesHandler(w http.ResponseWriter, r *http.Request) {
	clients := s.registry.AllClients()

	infos := make([]sourceInfoResponse, 0, len(clients))
	for _, client := range clients {
		infos = append(infos, sourceInfo(client))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Source < infos[j].Source })

	writeJSON(w, http.StatusOK, map[string]any{"sources": infos})
}
