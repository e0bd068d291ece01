package arxiv

import (
	"context"
	"encoding/xml"
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
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit is one request every three seconds, per the arXiv
	// API terms of use.
	DefaultRateLimit = 1.0 / 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 100

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// arxivIDRegex extracts the arXiv ID from the full entry URL. Matches
// "http://arxiv.org/abs/2301.12345v1" and "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// fieldPrefixes maps the uniform field names to arXiv query prefixes.
var fieldPrefixes = map[string]string{
	"title":    "ti",
	"author":   "au",
	"abstract": "abs",
	"category": "cat",
}

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

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

// Client implements the sources.SourceClient interface for arXiv.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

var _ sources.SourceClient = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Source:    domain.SourceTypeArXiv,
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

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries arXiv for preprints matching the given parameters.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, domain.NewFatalError(domain.SourceTypeArXiv,
			fmt.Errorf("arxiv source is disabled"))
	}

	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	feed, err := c.fetchFeed(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(feed.Entries))
	for i := range feed.Entries {
		if record := c.entryToRecord(&feed.Entries[i]); record != nil {
			records = append(records, record)
		}
	}

	nextOffset := params.Offset + len(records)
	hasMore := nextOffset < feed.TotalResults && len(records) > 0

	return &sources.SearchResult{
		Records:        records,
		TotalResults:   feed.TotalResults,
		HasMore:        hasMore,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypeArXiv,
		SearchDuration: time.Since(startTime),
	}, nil
}

// GetByID retrieves a specific preprint by its arXiv ID.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	if !c.config.Enabled {
		return nil, domain.NewFatalError(domain.SourceTypeArXiv,
			fmt.Errorf("arxiv source is disabled"))
	}

	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"
	query := url.Values{}
	query.Set("id_list", id)
	baseURL.RawQuery = query.Encode()

	feed, err := c.fetchFeed(ctx, baseURL.String())
	if err != nil {
		return nil, err
	}

	if len(feed.Entries) == 0 {
		return nil, domain.NewNotFoundError(domain.SourceTypeArXiv, id)
	}

	record := c.entryToRecord(&feed.Entries[0])
	if record == nil {
		return nil, domain.NewNotFoundError(domain.SourceTypeArXiv, id)
	}

	return record, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// fetchFeed executes a query request and decodes the Atom feed.
func (c *Client) fetchFeed(ctx context.Context, u string) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, sources.ClassifyStatus(domain.SourceTypeArXiv, resp)
	}

	body, err := sources.ReadBody(resp)
	if err != nil {
		return nil, domain.NewTransientError(domain.SourceTypeArXiv, err)
	}

	var feed Feed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, domain.NewParseError(domain.SourceTypeArXiv, err)
	}

	return &feed, nil
}

// buildSearchURL constructs the arXiv search API URL.
func (c *Client) buildSearchURL(params sources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	query := url.Values{}

	prefix := "all"
	if p, ok := fieldPrefixes[params.Field]; ok {
		prefix = p
	}
	searchQuery := prefix + ":" + params.Query

	if params.DateFrom != nil || params.DateTo != nil {
		if dateFilter := buildDateFilter(params.DateFrom, params.DateTo); dateFilter != "" {
			searchQuery = searchQuery + " AND " + dateFilter
		}
	}

	query.Set("search_query", searchQuery)

	maxResults := params.MaxResults
	if maxResults == 0 {
		maxResults = c.config.MaxResults
	}
	query.Set("max_results", strconv.Itoa(maxResults))

	if params.Offset > 0 {
		query.Set("start", strconv.Itoa(params.Offset))
	}

	// Newest submissions first.
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildDateFilter constructs the arXiv submittedDate range filter.
func buildDateFilter(from, to *time.Time) string {
	var fromStr, toStr string

	if from != nil {
		fromStr = from.Format("20060102") + "0000"
	} else {
		fromStr = "*"
	}

	if to != nil {
		toStr = to.Format("20060102") + "2359"
	} else {
		toStr = "*"
	}

	return fmt.Sprintf("submittedDate:[%s TO %s]", fromStr, toStr)
}

// entryToRecord converts an arXiv Atom entry to a domain Record.
func (c *Client) entryToRecord(entry *Entry) *domain.Record {
	if entry == nil {
		return nil
	}

	arxivID := extractArXivID(entry.ID)
	if arxivID == "" {
		return nil
	}

	doi := strings.TrimSpace(entry.DOI)

	canonicalID := domain.GenerateCanonicalID(domain.RecordIdentifiers{
		ArXivID: arxivID,
		DOI:     doi,
	})
	if canonicalID == "" {
		return nil
	}

	var pubDate *time.Time
	var pubYear int
	if entry.Published != "" {
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			pubDate = &t
			pubYear = t.Year()
		}
	}

	authors := make([]domain.Author, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{
			Name:        name,
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}

	// arXiv wraps titles and abstracts with newlines and padding.
	title := normalizeWhitespace(entry.Title)
	abstract := normalizeWhitespace(entry.Summary)

	links := []domain.Link{
		{Rel: "self", URL: "https://arxiv.org/abs/" + arxivID, Type: "text/html"},
	}
	pdfURL := ""
	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			pdfURL = link.Href
			break
		}
	}
	if pdfURL == "" {
		pdfURL = "https://arxiv.org/pdf/" + arxivID
	}
	links = append(links, domain.Link{Rel: "pdf", URL: pdfURL, Type: "application/pdf"})
	if doi != "" {
		links = append(links, domain.Link{Rel: "doi", URL: "https://doi.org/" + doi, Type: "text/html"})
	}

	categories := make([]string, 0, len(entry.Categories))
	for _, cat := range entry.Categories {
		if cat.Term != "" {
			categories = append(categories, cat.Term)
		}
	}

	rawMetadata := map[string]any{
		"arxiv_id":   arxivID,
		"categories": categories,
	}
	if doi != "" {
		rawMetadata["doi"] = doi
	}
	if entry.JournalRef != "" {
		rawMetadata["journal_ref"] = strings.TrimSpace(entry.JournalRef)
	}
	if entry.Comment != "" {
		rawMetadata["comment"] = strings.TrimSpace(entry.Comment)
	}
	if entry.PrimaryCategory.Term != "" {
		rawMetadata["primary_category"] = entry.PrimaryCategory.Term
	}

	return &domain.Record{
		Source:          domain.SourceTypeArXiv,
		ID:              arxivID,
		CanonicalID:     canonicalID,
		Title:           title,
		Abstract:        abstract,
		Authors:         authors,
		PublicationDate: pubDate,
		PublicationYear: pubYear,
		Journal:         strings.TrimSpace(entry.JournalRef),
		Links:           links,
		RawMetadata:     rawMetadata,
	}
}

// extractArXivID extracts the arXiv ID from the full entry URL.
// "http://arxiv.org/abs/2301.12345v1" becomes "2301.12345".
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// normalizeWhitespace trims and collapses runs of whitespace into single
// spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
