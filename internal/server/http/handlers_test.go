package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scidex/scifetch/internal/coordinator"
	"github.com/scidex/scifetch/internal/domain"
	"github.com/scidex/scifetch/internal/sources"
)

// fakeSource is a programmable source adapter for handler tests.
type fakeSource struct {
	source  domain.SourceType
	enabled bool

	searchFn func(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error)
	fetchFn  func(ctx context.Context, id string) (*domain.Record, error)
}

func (f *fakeSource) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	if f.searchFn != nil {
		return f.searchFn(ctx, params)
	}
	return &sources.SearchResult{
		Source:       f.source,
		Records:      []*domain.Record{{Source: f.source, ID: "39775738", Title: "CRISPR screening"}},
		TotalResults: 1,
	}, nil
}

func (f *fakeSource) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	if f.fetchFn != nil {
		return f.fetchFn(ctx, id)
	}
	return &domain.Record{Source: f.source, ID: id, Title: "fetched record"}, nil
}

func (f *fakeSource) SourceType() domain.SourceType { return f.source }
func (f *fakeSource) Name() string                  { return string(f.source) }
func (f *fakeSource) IsEnabled() bool               { return f.enabled }

// linkedSource adds link resolution on top of fakeSource.
type linkedSource struct {
	*fakeSource
}

func (l *linkedSource) GetLinks(ctx context.Context, id string) ([]domain.Link, error) {
	return []domain.Link{{Rel: "pmc", URL: "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC7613113/"}}, nil
}

func newTestServer(t *testing.T, clients ...sources.SourceClient) *Server {
	t.Helper()

	registry := sources.NewRegistry()
	for _, client := range clients {
		registry.Register(client)
	}

	coord, err := coordinator.New(registry, coordinator.Config{
		CacheSize:  100,
		DefaultTTL: time.Hour,
		Retry:      coordinator.RetryPolicy{MaxAttempts: 1},
	}, zerolog.Nop(), nil)
	require.NoError(t, err)

	return NewServer(Config{Address: "127.0.0.1:0"}, coord, registry, zerolog.Nop())
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestSearchHandler(t *testing.T) {
	pm := &fakeSource{source: domain.SourceTypePubMed, enabled: true}
	ax := &fakeSource{source: domain.SourceTypeArXiv, enabled: true}
	srv := newTestServer(t, pm, ax)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/search", searchRequest{
		Query:   "CRISPR gene editing",
		Sources: []string{"pubmed", "arxiv"},
		Limit:   10,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CRISPR gene editing", resp.Query)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.Empty(t, r.Error)
		assert.Len(t, r.Records, 1)
	}
}

func TestSearchHandler_PartialFailure(t *testing.T) {
	pm := &fakeSource{source: domain.SourceTypePubMed, enabled: true}
	ax := &fakeSource{source: domain.SourceTypeArXiv, enabled: true}
	ax.searchFn = func(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
		return nil, domain.NewAuthError(domain.SourceTypeArXiv, "credentials rejected")
	}
	srv := newTestServer(t, pm, ax)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/search", searchRequest{
		Query:   "transformer",
		Sources: []string{"pubmed", "arxiv"},
	})

	require.Equal(t, http.StatusOK, rec.Code, "partial failure still returns the healthy results")

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)

	bySource := map[string]searchSourceResponse{}
	for _, r := range resp.Results {
		bySource[r.Source] = r
	}
	assert.Len(t, bySource["pubmed"].Records, 1)
	assert.Empty(t, bySource["pubmed"].Error)
	assert.NotEmpty(t, bySource["arxiv"].Error)
	assert.Equal(t, "auth", bySource["arxiv"].ErrorKind)
}

func TestSearchHandler_Validation(t *testing.T) {
	srv := newTestServer(t, &fakeSource{source: domain.SourceTypePubMed, enabled: true})

	tests := []struct {
		name string
		body any
	}{
		{"missing query", searchRequest{Sources: []string{"pubmed"}}},
		{"unknown source", searchRequest{Query: "crispr", Sources: []string{"scholar"}}},
		{"negative offset", searchRequest{Query: "crispr", Offset: -1}},
		{"oversized limit", searchRequest{Query: "crispr", Limit: 5000}},
		{"not json", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/v1/search", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSearchHandler_DefaultsToEnabledSources(t *testing.T) {
	enabled := &fakeSource{source: domain.SourceTypePubMed, enabled: true}
	disabled := &fakeSource{source: domain.SourceTypeArXiv, enabled: false}
	srv := newTestServer(t, enabled, disabled)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/search", searchRequest{Query: "crispr"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "pubmed", resp.Results[0].Source)
}

func TestSearchPagesHandler(t *testing.T) {
	client := &fakeSource{source: domain.SourceTypeCrossRef, enabled: true}
	client.searchFn = func(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
		pages := map[int][]*domain.Record{
			0: {{Source: domain.SourceTypeCrossRef, ID: "10.1000/a"}, {Source: domain.SourceTypeCrossRef, ID: "10.1000/b"}},
			2: {{Source: domain.SourceTypeCrossRef, ID: "10.1000/c"}},
		}
		records := pages[params.Offset]
		next := params.Offset + len(records)
		return &sources.SearchResult{
			Source:       domain.SourceTypeCrossRef,
			Records:      records,
			TotalResults: 3,
			HasMore:      next < 3,
			NextOffset:   next,
		}, nil
	}
	srv := newTestServer(t, client)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/search/pages", searchPagesRequest{
		Source: "crossref",
		Query:  "microbiome",
		Limit:  2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchPagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "crossref", resp.Source)
	assert.Len(t, resp.Records, 3)
	assert.Equal(t, 2, resp.Pages)
	assert.True(t, resp.Exhausted)
	assert.Empty(t, resp.Error)
}

func TestSearchPagesHandler_PartialFailure(t *testing.T) {
	client := &fakeSource{source: domain.SourceTypePubMed, enabled: true}
	client.searchFn = func(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
		if params.Offset >= 2 {
			return nil, domain.NewTransientError(domain.SourceTypePubMed, context.DeadlineExceeded)
		}
		return &sources.SearchResult{
			Source:     domain.SourceTypePubMed,
			Records:    []*domain.Record{{Source: domain.SourceTypePubMed, ID: "1"}, {Source: domain.SourceTypePubMed, ID: "2"}},
			HasMore:    true,
			NextOffset: 2,
		}, nil
	}
	srv := newTestServer(t, client)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/search/pages", searchPagesRequest{
		Source: "pubmed",
		Query:  "sepsis",
		Limit:  2,
	})
	require.Equal(t, http.StatusOK, rec.Code, "pages fetched before the failure are kept")

	var resp searchPagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Records, 2)
	assert.Equal(t, 2, resp.NextOffset, "the caller can resume from the failure point")
	assert.False(t, resp.Exhausted)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, "transient", resp.ErrorKind)
}

func TestSearchPagesHandler_Validation(t *testing.T) {
	client := &fakeSource{source: domain.SourceTypePubMed, enabled: true}
	client.searchFn = func(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
		return nil, domain.NewNotFoundError(domain.SourceTypePubMed, "none")
	}
	srv := newTestServer(t, client)

	tests := []struct {
		name string
		body any
		code int
	}{
		{"missing source", searchPagesRequest{Query: "crispr"}, http.StatusBadRequest},
		{"unknown source", searchPagesRequest{Source: "scholar", Query: "crispr"}, http.StatusBadRequest},
		{"missing query", searchPagesRequest{Source: "pubmed"}, http.StatusBadRequest},
		{"oversized page cap", searchPagesRequest{Source: "pubmed", Query: "crispr", MaxPages: 500}, http.StatusBadRequest},
		{"first page failure surfaces the domain status", searchPagesRequest{Source: "pubmed", Query: "crispr"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/v1/search/pages", tt.body)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestGetRecordHandler(t *testing.T) {
	srv := newTestServer(t, &fakeSource{source: domain.SourceTypePubMed, enabled: true})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/records/pubmed/39775738", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp recordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pubmed", resp.Source)
	assert.Equal(t, "39775738", resp.Record.ID)
	assert.Equal(t, 1, resp.Attempts)
	assert.False(t, resp.FromCache)
}

func TestGetRecordHandler_NotFound(t *testing.T) {
	client := &fakeSource{source: domain.SourceTypePubMed, enabled: true}
	client.fetchFn = func(ctx context.Context, id string) (*domain.Record, error) {
		return nil, domain.NewNotFoundError(domain.SourceTypePubMed, id)
	}
	srv := newTestServer(t, client)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/records/pubmed/99999999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Kind)
}

func TestGetRecordHandler_RateLimited(t *testing.T) {
	client := &fakeSource{source: domain.SourceTypePubMed, enabled: true}
	client.fetchFn = func(ctx context.Context, id string) (*domain.Record, error) {
		return nil, domain.NewRateLimitError(domain.SourceTypePubMed, 2*time.Second)
	}
	srv := newTestServer(t, client)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/records/pubmed/39775738", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestGetRecordHandler_UnknownSource(t *testing.T) {
	srv := newTestServer(t, &fakeSource{source: domain.SourceTypePubMed, enabled: true})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/records/scholar/12345", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLinksHandler(t *testing.T) {
	linked := &linkedSource{&fakeSource{source: domain.SourceTypePubMed, enabled: true}}
	plain := &fakeSource{source: domain.SourceTypeArXiv, enabled: true}
	srv := newTestServer(t, linked, plain)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/records/pubmed/39775738/links", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp recordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Links, 1)
	assert.Equal(t, "pmc", resp.Links[0].Rel)

	// A source without link support rejects the operation.
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/records/arxiv/2301.00001/links", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSummaryHandler(t *testing.T) {
	srv := newTestServer(t, &fakeSource{source: domain.SourceTypePubMed, enabled: true})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/records/pubmed/39775738/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp recordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "39775738", resp.Record.ID)
}

func TestListSourcesHandler(t *testing.T) {
	linked := &linkedSource{&fakeSource{source: domain.SourceTypePubMed, enabled: true}}
	plain := &fakeSource{source: domain.SourceTypeArXiv, enabled: false}
	srv := newTestServer(t, linked, plain)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/sources", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Sources []sourceInfoResponse `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sources, 2)

	assert.Equal(t, "arxiv", resp.Sources[0].Source)
	assert.False(t, resp.Sources[0].Enabled)
	assert.NotContains(t, resp.Sources[0].Capabilities, "links")

	assert.Equal(t, "pubmed", resp.Sources[1].Source)
	assert.True(t, resp.Sources[1].Enabled)
	assert.Contains(t, resp.Sources[1].Capabilities, "links")
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeSource{source: domain.SourceTypePubMed, enabled: true})

	rec := doRequest(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz_NoSourcesEnabled(t *testing.T) {
	srv := newTestServer(t, &fakeSource{source: domain.SourceTypePubMed, enabled: false})

	rec := doRequest(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, &fakeSource{source: domain.SourceTypePubMed, enabled: true})

	rec := doRequest(t, srv, http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, "req-abc-123", rec.Header().Get("X-Request-ID"))
}
