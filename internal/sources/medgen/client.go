package medgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scidex/scifetch/internal/domain"
	"github.com/scidex/scifetch/internal/sources"
	"github.com/scidex/scifetch/internal/sources/entrez"
)

const (
	// DefaultMaxResults is the default maximum results per search.
	DefaultMaxResults = 20

	// sourceName is the human-readable name for this source.
	sourceName = "MedGen"

	// db is the Entrez database this client queries.
	db = "medgen"

	// conceptBaseURL is the public concept page, used for record links.
	conceptBaseURL = "https://www.ncbi.nlm.nih.gov/medgen/"
)

// Config holds the configuration for the MedGen client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	BaseURL string

	// APIKey is the NCBI API key shared with the other Entrez sources.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. When zero, derived
	// from the presence of an API key.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the default maximum results per search.
	MaxResults int

	// Enabled indicates whether this source is enabled.
	Enabled bool
}

// applyDefaults applies default values to the config.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = entrez.DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = entrez.DefaultTimeout
	}
	if c.RateLimit == 0 {
		if c.APIKey != "" {
			c.RateLimit = entrez.KeyedRateLimit
		} else {
			c.RateLimit = entrez.DefaultRateLimit
		}
	}
	if c.BurstSize == 0 {
		c.BurstSize = entrez.DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the sources.SourceClient interface for MedGen.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

var _ sources.SourceClient = (*Client)(nil)

// New creates a new MedGen client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Source:    domain.SourceTypeMedGen,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "scifetch/1.0 (mailto:support@scidex.io)",
	}, logger)

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new MedGen client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries MedGen for concepts matching the given parameters.
// It performs a two-step lookup: esearch for concept UIDs, then esummary
// for the concept details.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, domain.NewFatalError(domain.SourceTypeMedGen,
			fmt.Errorf("medgen source is disabled"))
	}

	startTime := time.Now()

	searchResult, err := c.esearch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}

	uids := searchResult.ESearchResult.IDList
	if len(uids) == 0 {
		return &sources.SearchResult{
			Records:        []*domain.Record{},
			TotalResults:   searchResult.Count(),
			Source:         domain.SourceTypeMedGen,
			SearchDuration: time.Since(startTime),
		}, nil
	}

	records, err := c.esummary(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("esummary: %w", err)
	}

	nextOffset := params.Offset + len(records)
	hasMore := nextOffset < searchResult.Count() && len(records) > 0

	return &sources.SearchResult{
		Records:        records,
		TotalResults:   searchResult.Count(),
		HasMore:        hasMore,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypeMedGen,
		SearchDuration: time.Since(startTime),
	}, nil
}

// GetByID retrieves a specific concept by its MedGen UID.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	if !c.config.Enabled {
		return nil, domain.NewFatalError(domain.SourceTypeMedGen,
			fmt.Errorf("medgen source is disabled"))
	}

	records, err := c.esummary(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("esummary: %w", err)
	}

	if len(records) == 0 {
		return nil, domain.NewNotFoundError(domain.SourceTypeMedGen, id)
	}

	return records[0], nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeMedGen
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// esearch performs a concept search and returns matching UIDs.
func (c *Client) esearch(ctx context.Context, params sources.SearchParams) (*entrez.JSONSearchResult, error) {
	term := params.Query
	if params.Field != "" {
		term = term + "[" + params.Field + "]"
	}

	q := entrez.Params{DB: db, APIKey: c.config.APIKey, RetMode: "json"}.Values()
	q.Set("term", term)
	q.Set("retmax", entrez.ClampRetMax(params.MaxResults, c.config.MaxResults))
	if params.Offset > 0 {
		q.Set("retstart", strconv.Itoa(params.Offset))
	}

	body, err := c.get(ctx, "esearch.fcgi", q)
	if err != nil {
		return nil, err
	}

	return entrez.DecodeJSONSearch(domain.SourceTypeMedGen, body)
}

// esummary retrieves concept details for the given UIDs, preserving the
// input order.
func (c *Client) esummary(ctx context.Context, uids []string) ([]*domain.Record, error) {
	q := entrez.Params{DB: db, APIKey: c.config.APIKey, RetMode: "json"}.Values()
	q.Set("id", strings.Join(uids, ","))

	body, err := c.get(ctx, "esummary.fcgi", q)
	if err != nil {
		return nil, err
	}

	var result ESummaryResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, domain.NewParseError(domain.SourceTypeMedGen, err)
	}

	records := make([]*domain.Record, 0, len(uids))
	for _, uid := range uids {
		raw, ok := result.Result[uid]
		if !ok {
			continue
		}

		var concept ConceptSummary
		if err := json.Unmarshal(raw, &concept); err != nil {
			return nil, domain.NewParseError(domain.SourceTypeMedGen, err)
		}
		if concept.UID == "" {
			concept.UID = uid
		}

		records = append(records, conceptToRecord(concept))
	}

	return records, nil
}

// get executes a GET against an E-utilities endpoint and returns the body.
func (c *Client) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	u, err := entrez.EndpointURL(c.config.BaseURL, endpoint, q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, sources.ClassifyStatus(domain.SourceTypeMedGen, resp)
	}

	body, err := sources.ReadBody(resp)
	if err != nil {
		return nil, domain.NewTransientError(domain.SourceTypeMedGen, err)
	}

	if entrez.IsRateLimitBody(body) {
		return nil, domain.NewRateLimitError(domain.SourceTypeMedGen, 0)
	}

	return body, nil
}

// conceptToRecord converts a MedGen concept to a domain.Record. The concept
// definition is carried in the Abstract field; concepts have no authors or
// publication dates.
func conceptToRecord(concept ConceptSummary) *domain.Record {
	rawMetadata := map[string]any{
		"uid": concept.UID,
	}
	if concept.ConceptID != "" {
		rawMetadata["concept_id"] = concept.ConceptID
	}
	if concept.SemanticTyp != "" {
		rawMetadata["semantic_type"] = concept.SemanticTyp
	}
	if len(concept.Names) > 0 {
		names := make([]string, 0, len(concept.Names))
		for _, n := range concept.Names {
			if n.Name != "" {
				names = append(names, n.Name)
			}
		}
		rawMetadata["synonyms"] = names
	}

	return &domain.Record{
		Source:      domain.SourceTypeMedGen,
		ID:          concept.UID,
		CanonicalID: domain.GenerateCanonicalID(domain.RecordIdentifiers{MedGenUID: concept.UID}),
		Title:       concept.Title,
		Abstract:    strings.TrimSpace(concept.Definition),
		Links: []domain.Link{
			{Rel: "self", URL: conceptBaseURL + concept.UID, Type: "text/html"},
		},
		RawMetadata: rawMetadata,
	}
}
