package clinvar

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
	sourceName = "ClinVar"

	// db is the Entrez database this client queries.
	db = "clinvar"

	// variationBaseURL is the public variation page, used for record links.
	variationBaseURL = "https://www.ncbi.nlm.nih.gov/clinvar/variation/"
)

// Config holds the configuration for the ClinVar client.
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

// Client implements the sources.SourceClient interface for ClinVar.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

var _ sources.SourceClient = (*Client)(nil)

// New creates a new ClinVar client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Source:    domain.SourceTypeClinVar,
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

// NewWithHTTPClient creates a new ClinVar client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries ClinVar for variations matching the given parameters.
// It performs a two-step lookup: esearch for variation UIDs, then esummary
// for the variation details.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, domain.NewFatalError(domain.SourceTypeClinVar,
			fmt.Errorf("clinvar source is disabled"))
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
			Source:         domain.SourceTypeClinVar,
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
		Source:         domain.SourceTypeClinVar,
		SearchDuration: time.Since(startTime),
	}, nil
}

// GetByID retrieves a specific variation by its ClinVar UID.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	if !c.config.Enabled {
		return nil, domain.NewFatalError(domain.SourceTypeClinVar,
			fmt.Errorf("clinvar source is disabled"))
	}

	records, err := c.esummary(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("esummary: %w", err)
	}

	if len(records) == 0 {
		return nil, domain.NewNotFoundError(domain.SourceTypeClinVar, id)
	}

	return records[0], nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeClinVar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// esearch performs a variation search and returns matching UIDs.
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

	return entrez.DecodeJSONSearch(domain.SourceTypeClinVar, body)
}

// esummary retrieves variation details for the given UIDs, preserving the
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
		return nil, domain.NewParseError(domain.SourceTypeClinVar, err)
	}

	records := make([]*domain.Record, 0, len(uids))
	for _, uid := range uids {
		raw, ok := result.Result[uid]
		if !ok {
			continue
		}

		var variation VariationSummary
		if err := json.Unmarshal(raw, &variation); err != nil {
			return nil, domain.NewParseError(domain.SourceTypeClinVar, err)
		}
		if variation.UID == "" {
			variation.UID = uid
		}

		records = append(records, variationToRecord(variation))
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
		return nil, sources.ClassifyStatus(domain.SourceTypeClinVar, resp)
	}

	body, err := sources.ReadBody(resp)
	if err != nil {
		return nil, domain.NewTransientError(domain.SourceTypeClinVar, err)
	}

	if entrez.IsRateLimitBody(body) {
		return nil, domain.NewRateLimitError(domain.SourceTypeClinVar, 0)
	}

	return body, nil
}

// variationToRecord converts a ClinVar variation to a domain.Record.
// Clinical significance and associated genes land in RawMetadata; the
// last-evaluated date doubles as the record's date.
func variationToRecord(variation VariationSummary) *domain.Record {
	rawMetadata := map[string]any{
		"uid":      variation.UID,
		"obj_type": variation.ObjType,
	}
	if variation.Accession != "" {
		rawMetadata["accession"] = variation.Accession
	}
	if variation.ClinicalSignificance.Description != "" {
		rawMetadata["clinical_significance"] = variation.ClinicalSignificance.Description
		rawMetadata["review_status"] = variation.ClinicalSignificance.ReviewStatus
	}
	if len(variation.Genes) > 0 {
		genes := make([]string, 0, len(variation.Genes))
		for _, g := range variation.Genes {
			if g.Symbol != "" {
				genes = append(genes, g.Symbol)
			}
		}
		rawMetadata["genes"] = genes
	}
	if len(variation.TraitSet) > 0 {
		traits := make([]string, 0, len(variation.TraitSet))
		for _, t := range variation.TraitSet {
			if t.TraitName != "" {
				traits = append(traits, t.TraitName)
			}
		}
		rawMetadata["conditions"] = traits
	}
	if len(variation.VariationSet) > 0 && variation.VariationSet[0].CanonicalSPDI != "" {
		rawMetadata["canonical_spdi"] = variation.VariationSet[0].CanonicalSPDI
	}

	var evalDate *time.Time
	var evalYear int
	if variation.ClinicalSignificance.LastEvaluated != "" {
		if t, err := time.Parse("2006/01/02 15:04", variation.ClinicalSignificance.LastEvaluated); err == nil {
			t = t.UTC()
			evalDate = &t
			evalYear = t.Year()
		}
	}

	title := variation.Title
	if title == "" && len(variation.VariationSet) > 0 {
		title = variation.VariationSet[0].VariationName
	}

	return &domain.Record{
		Source:          domain.SourceTypeClinVar,
		ID:              variation.UID,
		CanonicalID:     domain.GenerateCanonicalID(domain.RecordIdentifiers{ClinVarID: variation.UID}),
		Title:           title,
		PublicationDate: evalDate,
		PublicationYear: evalYear,
		Links: []domain.Link{
			{Rel: "self", URL: variationBaseURL + variation.UID + "/", Type: "text/html"},
		},
		RawMetadata: rawMetadata,
	}
}
