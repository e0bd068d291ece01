// Package entrez holds plumbing shared by the NCBI E-utilities adapters
// (PubMed, MedGen, ClinVar): endpoint URL construction, rate-limit
// defaults, and the NCBI error body patterns.
package entrez

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/scidex/scifetch/internal/domain"
)

const (
	// DefaultBaseURL is the base URL for NCBI E-utilities.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the rate limit without an API key
	// (3 requests/second). With an API key the limit is KeyedRateLimit.
	DefaultRateLimit = 3.0

	// KeyedRateLimit is the rate limit with an API key (10 requests/second).
	KeyedRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxResultsLimit is the maximum results allowed per request by the API.
	MaxResultsLimit = 10000
)

// rateLimitBody is the error body NCBI returns alongside throttling
// responses, e.g. {"error":"API rate limit exceeded","api-key":"..."}.
var rateLimitBody = []byte("API rate limit exceeded")

// IsRateLimitBody reports whether an NCBI response body signals throttling.
// NCBI sometimes returns this with a 200 status, so adapters check bodies
// as well as status codes.
func IsRateLimitBody(body []byte) bool {
	return bytes.Contains(body, rateLimitBody)
}

// Params builds the common E-utilities query parameters.
type Params struct {
	DB      string
	APIKey  string
	RetMode string
}

// Values returns the parameter set as url.Values with common fields set.
func (p Params) Values() url.Values {
	q := url.Values{}
	q.Set("db", p.DB)
	if p.RetMode != "" {
		q.Set("retmode", p.RetMode)
	}
	if p.APIKey != "" {
		q.Set("api_key", p.APIKey)
	}
	return q
}

// EndpointURL joins the base URL with an E-utilities endpoint
// (e.g. "esearch.fcgi") and the encoded query.
func EndpointURL(baseURL, endpoint string, q url.Values) (string, error) {
	u, err := url.Parse(baseURL + "/" + endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ClampRetMax bounds a caller-supplied page size to the API limit, falling
// back to def when unset.
func ClampRetMax(requested, def int) string {
	n := requested
	if n <= 0 {
		n = def
	}
	if n > MaxResultsLimit {
		n = MaxResultsLimit
	}
	return strconv.Itoa(n)
}

// JSONSearchResult models the retmode=json esearch response envelope used
// by the MedGen and ClinVar adapters.
type JSONSearchResult struct {
	ESearchResult struct {
		Count    string   `json:"count"`
		RetMax   string   `json:"retmax"`
		RetStart string   `json:"retstart"`
		IDList   []string `json:"idlist"`
	} `json:"esearchresult"`
	Error string `json:"error"`
}

// DecodeJSONSearch decodes a JSON esearch body, translating NCBI error
// envelopes into domain errors.
func DecodeJSONSearch(source domain.SourceType, body []byte) (*JSONSearchResult, error) {
	if IsRateLimitBody(body) {
		return nil, domain.NewRateLimitError(source, 0)
	}

	var result JSONSearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, domain.NewParseError(source, err)
	}
	if result.Error != "" {
		return nil, domain.NewFatalError(source, fmt.Errorf("esearch error: %s", result.Error))
	}
	return &result, nil
}

// Count parses the total hit count from a JSON esearch result.
func (r *JSONSearchResult) Count() int {
	n, err := strconv.Atoi(r.ESearchResult.Count)
	if err != nil {
		return len(r.ESearchResult.IDList)
	}
	return n
}
