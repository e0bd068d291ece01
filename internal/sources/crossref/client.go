package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scidex/scifetch/internal/domain"
	"github.com/scidex/scifetch/internal/sources"
)

const (
	// DefaultBaseURL is the default CrossRef REST API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is a conservative default well under CrossRef's
	// published polite-pool guidance (50 req/sec).
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 20

	// MaxResultsLimit is the maximum rows CrossRef accepts per request.
	MaxResultsLimit = 1000

	// sourceName is the human-readable name for this source.
	sourceName = "CrossRef"
)

// jatsTagRegex strips JATS markup from CrossRef abstracts.
var jatsTagRegex = regexp.MustCompile(`</?jats:[^>]+>`)

// fieldQueryParams maps the uniform field names to CrossRef query parameters.
var fieldQueryParams = map[string]string{
	"title":  "query.title",
	"author": "query.author",
}

// Config holds configuration for the CrossRef client.
type Config struct {
	// BaseURL is the CrossRef API base URL.
	BaseURL string

	// Email is the contact address appended as mailto for polite-pool
	// access. Optional but recommended.
	Email string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum results to return per search request.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the sources.SourceClient interface for CrossRef.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

var _ sources.SourceClient = (*Client)(nil)

// New creates a new CrossRef client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	userAgent := "scifetch/1.0"
	if cfg.Email != "" {
		userAgent = fmt.Sprintf("scifetch/1.0 (mailto:%s)", cfg.Email)
	}

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Source:    domain.SourceTypeCrossRef,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: userAgent,
	}, logger)

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new CrossRef client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries CrossRef for works matching the given parameters.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, domain.NewFatalError(domain.SourceTypeCrossRef,
			fmt.Errorf("crossref source is disabled"))
	}

	startTime := time.Now()

	q := url.Values{}
	queryParam := "query"
	if p, ok := fieldQueryParams[params.Field]; ok {
		queryParam = p
	}
	q.Set(queryParam, params.Query)

	rows := params.MaxResults
	if rows <= 0 {
		rows = c.config.MaxResults
	}
	if rows > MaxResultsLimit {
		rows = MaxResultsLimit
	}
	q.Set("rows", strconv.Itoa(rows))

	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}

	var filters []string
	if params.DateFrom != nil {
		filters = append(filters, "from-pub-date:"+params.DateFrom.Format("2006-01-02"))
	}
	if params.DateTo != nil {
		filters = append(filters, "until-pub-date:"+params.DateTo.Format("2006-01-02"))
	}
	if len(filters) > 0 {
		q.Set("filter", strings.Join(filters, ","))
	}

	body, err := c.get(ctx, "/works", q)
	if err != nil {
		return nil, err
	}

	var response WorkListResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, domain.NewParseError(domain.SourceTypeCrossRef, err)
	}

	records := make([]*domain.Record, 0, len(response.Message.Items))
	for i := range response.Message.Items {
		if record := workToRecord(&response.Message.Items[i]); record != nil {
			records = append(records, record)
		}
	}

	nextOffset := params.Offset + len(records)
	hasMore := nextOffset < response.Message.TotalResults && len(records) > 0

	return &sources.SearchResult{
		Records:        records,
		TotalResults:   response.Message.TotalResults,
		HasMore:        hasMore,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypeCrossRef,
		SearchDuration: time.Since(startTime),
	}, nil
}

// GetByID retrieves a specific work by its DOI.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	if !c.config.Enabled {
		return nil, domain.NewFatalError(domain.SourceTypeCrossRef,
			fmt.Errorf("crossref source is disabled"))
	}

	// DOIs contain slashes; escape each path segment.
	body, err := c.get(ctx, "/works/"+url.PathEscape(id), url.Values{})
	if err != nil {
		return nil, err
	}

	var response WorkResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, domain.NewParseError(domain.SourceTypeCrossRef, err)
	}

	record := workToRecord(&response.Message)
	if record == nil {
		return nil, domain.NewNotFoundError(domain.SourceTypeCrossRef, id)
	}

	return record, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCrossRef
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// get executes a GET against the CrossRef API and returns the body.
// path must already be escaped; DOIs contain slashes that have to survive
// as %2F in the request path.
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u, err := url.Parse(strings.TrimRight(c.config.BaseURL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	if c.config.Email != "" {
		q.Set("mailto", c.config.Email)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, sources.ClassifyStatus(domain.SourceTypeCrossRef, resp)
	}

	body, err := sources.ReadBody(resp)
	if err != nil {
		return nil, domain.NewTransientError(domain.SourceTypeCrossRef, err)
	}

	return body, nil
}

// workToRecord converts a CrossRef work to a domain Record.
func workToRecord(work *Work) *domain.Record {
	if work == nil || work.DOI == "" {
		return nil
	}

	canonicalID := domain.GenerateCanonicalID(domain.RecordIdentifiers{DOI: work.DOI})

	var title string
	if len(work.Title) > 0 {
		title = work.Title[0]
	}

	var journal string
	if len(work.ContainerTitle) > 0 {
		journal = work.ContainerTitle[0]
	}

	authors := make([]domain.Author, 0, len(work.Author))
	for _, a := range work.Author {
		name := a.Name
		if name == "" {
			name = strings.TrimSpace(a.Given + " " + a.Family)
		}
		if name == "" {
			continue
		}

		var affiliation string
		if len(a.Affiliation) > 0 {
			affiliation = a.Affiliation[0].Name
		}

		authors = append(authors, domain.Author{
			Name:        name,
			Affiliation: affiliation,
			ORCID:       strings.TrimPrefix(a.ORCID, "http://orcid.org/"),
		})
	}

	pubDate, pubYear := issuedDate(work.Issued)

	links := []domain.Link{
		{Rel: "doi", URL: "https://doi.org/" + work.DOI, Type: "text/html"},
	}
	if work.URL != "" {
		links = append(links, domain.Link{Rel: "self", URL: work.URL, Type: "text/html"})
	}
	for _, l := range work.Link {
		if l.ContentType == "application/pdf" {
			links = append(links, domain.Link{Rel: "pdf", URL: l.URL, Type: l.ContentType})
			break
		}
	}

	rawMetadata := map[string]any{
		"doi":  work.DOI,
		"type": work.Type,
	}
	if work.Publisher != "" {
		rawMetadata["publisher"] = work.Publisher
	}
	if len(work.ISSN) > 0 {
		rawMetadata["issn"] = work.ISSN
	}
	if len(work.Subject) > 0 {
		rawMetadata["subjects"] = work.Subject
	}

	return &domain.Record{
		Source:          domain.SourceTypeCrossRef,
		ID:              work.DOI,
		CanonicalID:     canonicalID,
		Title:           title,
		Abstract:        stripJATS(work.Abstract),
		Authors:         authors,
		PublicationDate: pubDate,
		PublicationYear: pubYear,
		Journal:         journal,
		Volume:          work.Volume,
		Issue:           work.Issue,
		Pages:           work.Page,
		Links:           links,
		RawMetadata:     rawMetadata,
	}
}

// issuedDate converts a CrossRef partial date into a time and year.
// Missing month and day default to January 1.
func issuedDate(d WorkDate) (*time.Time, int) {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return nil, 0
	}

	parts := d.DateParts[0]
	year := parts[0]
	month, day := 1, 1
	if len(parts) > 1 && parts[1] >= 1 && parts[1] <= 12 {
		month = parts[1]
	}
	if len(parts) > 2 && parts[2] >= 1 && parts[2] <= 31 {
		day = parts[2]
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t, year
}

// stripJATS removes JATS XML markup from CrossRef abstract text.
func stripJATS(abstract string) string {
	if abstract == "" {
		return ""
	}
	return strings.TrimSpace(jatsTagRegex.ReplaceAllString(abstract, ""))
}
