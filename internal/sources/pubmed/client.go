package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
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
	DefaultMaxResults = 100

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"

	// db is the Entrez database this client queries.
	db = "pubmed"

	// articleBaseURL is the public article page, used for record links.
	articleBaseURL = "https://pubmed.ncbi.nlm.nih.gov/"
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to entrez.DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key. Optional; with a key NCBI allows
	// 10 requests/second instead of 3.
	APIKey string

	// Timeout is the request timeout. Defaults to entrez.DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. When zero, the limit is
	// derived from the presence of an API key (10 req/sec keyed, 3 unkeyed).
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to entrez.DefaultBurstSize if zero.
	BurstSize int

	// MaxResults is the default maximum results per search.
	// Defaults to DefaultMaxResults if zero.
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

// Client implements the sources.SourceClient interface for PubMed,
// plus the Summarizer (esummary) and Linker (elink) capabilities.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
	logger     zerolog.Logger
}

// Compile-time checks for the implemented capabilities.
var (
	_ sources.SourceClient = (*Client)(nil)
	_ sources.Summarizer   = (*Client)(nil)
	_ sources.Linker       = (*Client)(nil)
)

// New creates a new PubMed client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	httpCfg := sources.HTTPClientConfig{
		Source:    domain.SourceTypePubMed,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "scifetch/1.0 (mailto:support@scidex.io)",
	}

	return &Client{
		config:     cfg,
		httpClient: sources.NewHTTPClient(httpCfg, logger),
		logger:     logger.With().Str("source", db).Logger(),
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient, logger zerolog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("source", db).Logger(),
	}
}

// Search queries PubMed for records matching the given parameters.
//
// The first page performs a two-step search: esearch.fcgi with usehistory=y
// retrieves matching PMIDs and posts the result set to the NCBI history
// server, then efetch.fcgi retrieves full article metadata. The returned
// continuation token carries the history handle (WebEnv and query_key), so
// later pages skip esearch and fetch directly from the posted set.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, domain.NewFatalError(domain.SourceTypePubMed,
			fmt.Errorf("pubmed source is disabled"))
	}

	startTime := time.Now()

	if params.Continuation != "" {
		return c.searchHistory(ctx, params, startTime)
	}

	// Step 1: search for PMIDs, posting the result set to the history server
	searchResult, err := c.esearch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}

	// Phrases not found are empty results, not an error.
	if searchResult.ErrorList != nil && len(searchResult.ErrorList.PhraseNotFound) > 0 {
		return &sources.SearchResult{
			Records:        []*domain.Record{},
			Source:         domain.SourceTypePubMed,
			SearchDuration: time.Since(startTime),
		}, nil
	}

	cont := encodeContinuation(searchResult.QueryKey, searchResult.WebEnv, searchResult.Count)

	if len(searchResult.IDList.IDs) == 0 {
		return &sources.SearchResult{
			Records:        []*domain.Record{},
			TotalResults:   searchResult.Count,
			HasMore:        false,
			NextOffset:     params.Offset,
			Source:         domain.SourceTypePubMed,
			SearchDuration: time.Since(startTime),
		}, nil
	}

	// Step 2: fetch full article metadata
	articles, err := c.efetchIDs(ctx, searchResult.IDList.IDs)
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}

	records := make([]*domain.Record, 0, len(articles.Articles))
	for _, article := range articles.Articles {
		records = append(records, c.articleToRecord(article))
	}

	nextOffset := params.Offset + len(records)
	hasMore := nextOffset < searchResult.Count

	result := &sources.SearchResult{
		Records:        records,
		TotalResults:   searchResult.Count,
		HasMore:        hasMore,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypePubMed,
		SearchDuration: time.Since(startTime),
	}
	if hasMore {
		result.Continuation = cont
	}
	return result, nil
}

// searchHistory fetches a page from a result set previously posted to the
// history server, identified by the continuation token.
func (c *Client) searchHistory(ctx context.Context, params sources.SearchParams, startTime time.Time) (*sources.SearchResult, error) {
	queryKey, webEnv, count, err := decodeContinuation(params.Continuation)
	if err != nil {
		return nil, err
	}

	q := entrez.Params{DB: db, APIKey: c.config.APIKey, RetMode: "xml"}.Values()
	q.Set("query_key", queryKey)
	q.Set("WebEnv", webEnv)
	q.Set("rettype", "abstract")
	q.Set("retstart", strconv.Itoa(params.Offset))
	q.Set("retmax", entrez.ClampRetMax(params.MaxResults, c.config.MaxResults))

	body, err := c.get(ctx, "efetch.fcgi", q)
	if err != nil {
		return nil, fmt.Errorf("efetch (history): %w", err)
	}

	var articles PubmedArticleSet
	if err := xml.Unmarshal(body, &articles); err != nil {
		return nil, domain.NewParseError(domain.SourceTypePubMed, err)
	}

	records := make([]*domain.Record, 0, len(articles.Articles))
	for _, article := range articles.Articles {
		records = append(records, c.articleToRecord(article))
	}

	nextOffset := params.Offset + len(records)
	hasMore := nextOffset < count && len(records) > 0

	result := &sources.SearchResult{
		Records:        records,
		TotalResults:   count,
		HasMore:        hasMore,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypePubMed,
		SearchDuration: time.Since(startTime),
	}
	if hasMore {
		result.Continuation = params.Continuation
	}
	return result, nil
}

// GetByID retrieves a specific record by its PubMed ID (PMID).
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	if !c.config.Enabled {
		return nil, domain.NewFatalError(domain.SourceTypePubMed,
			fmt.Errorf("pubmed source is disabled"))
	}

	articles, err := c.efetchIDs(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}

	if len(articles.Articles) == 0 {
		return nil, domain.NewNotFoundError(domain.SourceTypePubMed, id)
	}

	return c.articleToRecord(articles.Articles[0]), nil
}

// GetSummary retrieves lightweight record metadata via esummary.fcgi.
// Summaries omit the abstract but are much cheaper than a full efetch.
func (c *Client) GetSummary(ctx context.Context, id string) (*domain.Record, error) {
	if !c.config.Enabled {
		return nil, domain.NewFatalError(domain.SourceTypePubMed,
			fmt.Errorf("pubmed source is disabled"))
	}

	q := entrez.Params{DB: db, APIKey: c.config.APIKey, RetMode: "json"}.Values()
	q.Set("id", id)
	q.Set("version", "2.0")

	body, err := c.get(ctx, "esummary.fcgi", q)
	if err != nil {
		return nil, fmt.Errorf("esummary: %w", err)
	}

	if entrez.IsRateLimitBody(body) {
		return nil, domain.NewRateLimitError(domain.SourceTypePubMed, 0)
	}

	var result ESummaryResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, domain.NewParseError(domain.SourceTypePubMed, err)
	}

	raw, ok := result.Result[id]
	if !ok {
		return nil, domain.NewNotFoundError(domain.SourceTypePubMed, id)
	}

	var doc DocSummary
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.NewParseError(domain.SourceTypePubMed, err)
	}
	if doc.UID == "" {
		doc.UID = id
	}

	return summaryToRecord(doc), nil
}

// GetLinks resolves related records for a PMID via elink.fcgi cmd=neighbor.
func (c *Client) GetLinks(ctx context.Context, id string) ([]domain.Link, error) {
	if !c.config.Enabled {
		return nil, domain.NewFatalError(domain.SourceTypePubMed,
			fmt.Errorf("pubmed source is disabled"))
	}

	q := entrez.Params{DB: db, APIKey: c.config.APIKey, RetMode: "json"}.Values()
	q.Del("db")
	q.Set("dbfrom", db)
	q.Set("id", id)
	q.Set("cmd", "neighbor")

	body, err := c.get(ctx, "elink.fcgi", q)
	if err != nil {
		return nil, fmt.Errorf("elink: %w", err)
	}

	if entrez.IsRateLimitBody(body) {
		return nil, domain.NewRateLimitError(domain.SourceTypePubMed, 0)
	}

	var result ELinkResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, domain.NewParseError(domain.SourceTypePubMed, err)
	}

	var links []domain.Link
	for _, set := range result.LinkSets {
		for _, lsdb := range set.LinkSetDBs {
			for _, target := range lsdb.Links {
				links = append(links, domain.Link{
					Rel:  lsdb.LinkName,
					URL:  linkTargetURL(lsdb.DBTo, target),
					Type: "text/html",
				})
			}
		}
	}
	return links, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePubMed
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// esearch performs a search query and returns matching PMIDs plus the
// history-server handle for the posted result set.
func (c *Client) esearch(ctx context.Context, params sources.SearchParams) (*ESearchResult, error) {
	term := params.Query
	if params.Field != "" {
		term = term + "[" + params.Field + "]"
	}

	q := entrez.Params{DB: db, APIKey: c.config.APIKey, RetMode: "xml"}.Values()
	q.Set("term", term)
	q.Set("usehistory", "y")
	q.Set("retmax", entrez.ClampRetMax(params.MaxResults, c.config.MaxResults))

	if params.Offset > 0 {
		q.Set("retstart", strconv.Itoa(params.Offset))
	}

	if params.DateFrom != nil || params.DateTo != nil {
		q.Set("datetype", "pdat")
		if params.DateFrom != nil {
			q.Set("mindate", params.DateFrom.Format("2006/01/02"))
		}
		if params.DateTo != nil {
			q.Set("maxdate", params.DateTo.Format("2006/01/02"))
		}
	}

	body, err := c.get(ctx, "esearch.fcgi", q)
	if err != nil {
		return nil, err
	}

	var result ESearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, domain.NewParseError(domain.SourceTypePubMed, err)
	}

	return &result, nil
}

// efetchIDs retrieves full article metadata for the given PMIDs.
func (c *Client) efetchIDs(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	if len(pmids) == 0 {
		return &PubmedArticleSet{}, nil
	}

	q := entrez.Params{DB: db, APIKey: c.config.APIKey, RetMode: "xml"}.Values()
	q.Set("id", strings.Join(pmids, ","))
	q.Set("rettype", "abstract")

	body, err := c.get(ctx, "efetch.fcgi", q)
	if err != nil {
		return nil, err
	}

	var result PubmedArticleSet
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, domain.NewParseError(domain.SourceTypePubMed, err)
	}

	return &result, nil
}

// get executes a GET against an E-utilities endpoint and returns the body.
// Non-success statuses and NCBI throttle bodies are translated into domain
// errors.
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
		return nil, sources.ClassifyStatus(domain.SourceTypePubMed, resp)
	}

	body, err := sources.ReadBody(resp)
	if err != nil {
		return nil, domain.NewTransientError(domain.SourceTypePubMed, err)
	}

	// NCBI sometimes reports throttling with a 200 status and an error body.
	if entrez.IsRateLimitBody(body) {
		return nil, domain.NewRateLimitError(domain.SourceTypePubMed, 0)
	}

	return body, nil
}

// encodeContinuation packs the history-server handle into an opaque token.
func encodeContinuation(queryKey, webEnv string, count int) string {
	if queryKey == "" || webEnv == "" {
		return ""
	}
	return queryKey + "|" + webEnv + "|" + strconv.Itoa(count)
}

// decodeContinuation unpacks a token produced by encodeContinuation.
func decodeContinuation(token string) (queryKey, webEnv string, count int, err error) {
	parts := strings.SplitN(token, "|", 3)
	if len(parts) != 3 {
		return "", "", 0, fmt.Errorf("%w: malformed continuation token", domain.ErrInvalidInput)
	}
	count, convErr := strconv.Atoi(parts[2])
	if convErr != nil {
		return "", "", 0, fmt.Errorf("%w: malformed continuation token", domain.ErrInvalidInput)
	}
	return parts[0], parts[1], count, nil
}

// linkTargetURL builds the public page URL for a linked record.
func linkTargetURL(dbTo, id string) string {
	switch dbTo {
	case "pubmed":
		return articleBaseURL + id + "/"
	case "pmc":
		return "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC" + id + "/"
	default:
		return "https://www.ncbi.nlm.nih.gov/" + dbTo + "/" + id
	}
}

// articleToRecord converts a PubmedArticle to a domain.Record.
func (c *Client) articleToRecord(article PubmedArticle) *domain.Record {
	citation := article.MedlineCitation
	pubmedData := article.PubmedData

	doi := extractDOI(citation.Article, pubmedData)

	ids := domain.RecordIdentifiers{
		DOI:      doi,
		PubMedID: citation.PMID.Value,
	}
	canonicalID := domain.GenerateCanonicalID(ids)

	pubDate, pubYear := extractPublicationDate(citation.Article)
	abstract := extractAbstract(citation.Article.Abstract)
	authors := extractAuthors(citation.Article.AuthorList)

	journal := citation.Article.Journal.Title
	if journal == "" {
		journal = citation.Article.Journal.ISOAbbreviation
	}

	links := []domain.Link{
		{Rel: "self", URL: articleBaseURL + citation.PMID.Value + "/", Type: "text/html"},
	}
	if doi != "" {
		links = append(links, domain.Link{Rel: "doi", URL: "https://doi.org/" + doi, Type: "text/html"})
	}

	rawMetadata := map[string]any{
		"pmid": citation.PMID.Value,
	}
	if doi != "" {
		rawMetadata["doi"] = doi
	}
	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "pmc" {
			rawMetadata["pmcid"] = aid.Value
			break
		}
	}
	if citation.MeshHeadingList != nil {
		meshTerms := make([]string, 0, len(citation.MeshHeadingList.MeshHeadings))
		for _, mh := range citation.MeshHeadingList.MeshHeadings {
			meshTerms = append(meshTerms, mh.DescriptorName.Value)
		}
		rawMetadata["mesh_terms"] = meshTerms
	}
	if citation.KeywordList != nil {
		keywords := make([]string, 0, len(citation.KeywordList.Keywords))
		for _, kw := range citation.KeywordList.Keywords {
			keywords = append(keywords, kw.Value)
		}
		rawMetadata["keywords"] = keywords
	}

	return &domain.Record{
		Source:          domain.SourceTypePubMed,
		ID:              citation.PMID.Value,
		CanonicalID:     canonicalID,
		Title:           citation.Article.ArticleTitle,
		Abstract:        abstract,
		Authors:         authors,
		PublicationDate: pubDate,
		PublicationYear: pubYear,
		Journal:         journal,
		Volume:          citation.Article.Journal.JournalIssue.Volume,
		Issue:           citation.Article.Journal.JournalIssue.Issue,
		Pages:           extractPages(citation.Article.Pagination),
		Links:           links,
		RawMetadata:     rawMetadata,
	}
}

// summaryToRecord converts an esummary document to a domain.Record.
// Summaries carry no abstract.
func summaryToRecord(doc DocSummary) *domain.Record {
	var doi string
	for _, aid := range doc.ArticleIDs {
		if aid.IDType == "doi" {
			doi = aid.Value
			break
		}
	}

	ids := domain.RecordIdentifiers{DOI: doi, PubMedID: doc.UID}

	authors := make([]domain.Author, 0, len(doc.Authors))
	for _, a := range doc.Authors {
		if a.Name == "" {
			continue
		}
		authors = append(authors, domain.Author{Name: a.Name})
	}

	var pubDate *time.Time
	var pubYear int
	if t, err := time.Parse("2006/01/02 15:04", doc.SortPubDate); err == nil {
		t = t.UTC()
		pubDate = &t
		pubYear = t.Year()
	}

	links := []domain.Link{
		{Rel: "self", URL: articleBaseURL + doc.UID + "/", Type: "text/html"},
	}
	if doi != "" {
		links = append(links, domain.Link{Rel: "doi", URL: "https://doi.org/" + doi, Type: "text/html"})
	}

	return &domain.Record{
		Source:          domain.SourceTypePubMed,
		ID:              doc.UID,
		CanonicalID:     domain.GenerateCanonicalID(ids),
		Title:           doc.Title,
		Authors:         authors,
		PublicationDate: pubDate,
		PublicationYear: pubYear,
		Journal:         doc.FullJournal,
		Volume:          doc.Volume,
		Issue:           doc.Issue,
		Pages:           doc.Pages,
		Links:           links,
		RawMetadata: map[string]any{
			"pmid":    doc.UID,
			"pubdate": doc.PubDate,
		},
	}
}

// extractDOI extracts the DOI from article metadata. ELocationID is checked
// first (more reliable), then ArticleIdList.
func extractDOI(article Article, pubmedData PubmedData) string {
	for _, eloc := range article.ELocationID {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return eloc.Value
		}
	}

	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "doi" {
			return aid.Value
		}
	}

	return ""
}

// extractPublicationDate extracts the publication date from the article.
// Uses ArticleDate if available, otherwise the journal issue PubDate.
func extractPublicationDate(article Article) (*time.Time, int) {
	for _, ad := range article.ArticleDate {
		if ad.DateType == "epublish" || ad.DateType == "Electronic" || ad.DateType == "" {
			if t := parseDate(ad.Year, ad.Month, ad.Day); t != nil {
				return t, t.Year()
			}
		}
	}

	pubDate := article.Journal.JournalIssue.PubDate

	// MedlineDate format, e.g. "2020 Jan-Feb" or "2020-2021".
	if pubDate.MedlineDate != "" {
		year := extractYearFromMedlineDate(pubDate.MedlineDate)
		if year > 0 {
			t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			return &t, year
		}
	}

	if pubDate.Year != "" {
		if t := parseDate(pubDate.Year, pubDate.Month, pubDate.Day); t != nil {
			return t, t.Year()
		}
		if year, err := strconv.Atoi(pubDate.Year); err == nil {
			t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			return &t, year
		}
	}

	return nil, 0
}

// parseDate parses year, month, day strings into a time.Time.
func parseDate(year, month, day string) *time.Time {
	if year == "" {
		return nil
	}

	y, err := strconv.Atoi(year)
	if err != nil {
		return nil
	}

	m := parseMonth(month)
	d := 1
	if day != "" {
		if parsed, err := strconv.Atoi(day); err == nil {
			d = parsed
		}
	}

	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// monthNames maps lowercase month names (abbreviated and full) to time.Month.
var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// parseMonth parses a month string (numeric or name) into time.Month.
func parseMonth(month string) time.Month {
	if month == "" {
		return time.January
	}

	if m, err := strconv.Atoi(month); err == nil && m >= 1 && m <= 12 {
		return time.Month(m)
	}

	if m, ok := monthNames[strings.ToLower(month)]; ok {
		return m
	}

	return time.January
}

// extractYearFromMedlineDate extracts the year from a MedlineDate string.
func extractYearFromMedlineDate(medlineDate string) int {
	parts := strings.Fields(medlineDate)
	if len(parts) > 0 {
		yearStr := strings.Split(parts[0], "-")[0]
		if year, err := strconv.Atoi(yearStr); err == nil {
			return year
		}
	}
	return 0
}

// extractAbstract concatenates multiple abstract sections into one string.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil || len(abstract.AbstractTexts) == 0 {
		return ""
	}

	if len(abstract.AbstractTexts) == 1 && abstract.AbstractTexts[0].Label == "" {
		return strings.TrimSpace(abstract.AbstractTexts[0].Value)
	}

	var parts []string
	for _, at := range abstract.AbstractTexts {
		text := strings.TrimSpace(at.Value)
		if text == "" {
			continue
		}
		if at.Label != "" {
			parts = append(parts, at.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

// extractAuthors converts PubMed authors to domain authors.
func extractAuthors(authorList *AuthorList) []domain.Author {
	if authorList == nil || len(authorList.Authors) == 0 {
		return nil
	}

	authors := make([]domain.Author, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		if a.ValidYN == "N" {
			continue
		}

		var name string
		if a.CollectiveName != "" {
			name = a.CollectiveName
		} else {
			nameParts := make([]string, 0, 2)
			if a.ForeName != "" {
				nameParts = append(nameParts, a.ForeName)
			}
			if a.LastName != "" {
				nameParts = append(nameParts, a.LastName)
			}
			name = strings.Join(nameParts, " ")
		}

		if name == "" {
			continue
		}

		var orcid string
		for _, id := range a.Identifiers {
			if strings.ToUpper(id.Source) == "ORCID" {
				orcid = id.Value
				break
			}
		}

		var affiliation string
		if len(a.AffiliationInfo) > 0 {
			affiliation = a.AffiliationInfo[0].Affiliation
		}

		authors = append(authors, domain.Author{
			Name:        name,
			Affiliation: affiliation,
			ORCID:       orcid,
		})
	}

	return authors
}

// extractPages formats the page information.
func extractPages(pagination *Pagination) string {
	if pagination == nil {
		return ""
	}

	if pagination.MedlinePgn != "" {
		return pagination.MedlinePgn
	}

	if pagination.StartPage != "" {
		if pagination.EndPage != "" && pagination.EndPage != pagination.StartPage {
			return pagination.StartPage + "-" + pagination.EndPage
		}
		return pagination.StartPage
	}

	return ""
}
