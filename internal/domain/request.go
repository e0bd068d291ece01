package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Operation names a logical action against a source.
type Operation string

// Supported operations.
const (
	OperationSearch   Operation = "search"
	OperationFetch    Operation = "fetch"
	OperationMetadata Operation = "metadata"
	OperationLinks    Operation = "links"
)

// ParseOperation converts a string into an Operation.
// Returns false if the string does not name a known operation.
func ParseOperation(s string) (Operation, bool) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OperationSearch, OperationFetch, OperationMetadata, OperationLinks:
		return op, true
	}
	return "", false
}

// RequestSpec is the normalized description of a single logical fetch or
// search operation. It is a value type: two specs with identical semantic
// content produce identical cache keys regardless of how they were built.
type RequestSpec struct {
	// Source selects the adapter.
	Source SourceType `json:"source"`

	// Operation is the action to perform.
	Operation Operation `json:"operation"`

	// Query is the search query string (search operation).
	Query string `json:"query,omitempty"`

	// ID is the source-native record identifier (fetch/metadata/links).
	ID string `json:"id,omitempty"`

	// Offset and Limit control paging for search.
	Offset int `json:"offset,omitempty"`
	Limit  int `json:"limit,omitempty"`

	// Filters holds optional restrictions (date_from, date_to, field).
	// Keys are compared after sorting, so insertion order is irrelevant.
	Filters map[string]string `json:"filters,omitempty"`

	// Continuation is an opaque paging token returned by a previous search
	// against the same source (e.g. PubMed history-server state).
	Continuation string `json:"continuation,omitempty"`
}

// Validate checks the spec for structural errors. It returns an error
// wrapping ErrInvalidInput so the coordinator can reject without retrying.
func (s RequestSpec) Validate() error {
	if _, ok := ParseSourceType(string(s.Source)); !ok {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidInput, s.Source)
	}
	if _, ok := ParseOperation(string(s.Operation)); !ok {
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidInput, s.Operation)
	}

	switch s.Operation {
	case OperationSearch:
		if strings.TrimSpace(s.Query) == "" {
			return fmt.Errorf("%w: search requires a query", ErrInvalidInput)
		}
	default:
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("%w: %s requires an id", ErrInvalidInput, s.Operation)
		}
	}

	if s.Offset < 0 || s.Limit < 0 {
		return fmt.Errorf("%w: offset and limit must be non-negative", ErrInvalidInput)
	}
	return nil
}

// CacheKey computes a stable fingerprint of the spec. The serialization
// sorts filter keys, so two semantically identical specs always hash to
// the same key. Every value is escaped before joining, so a value
// containing the separator characters cannot forge another spec's
// serialization.
func (s RequestSpec) CacheKey() string {
	var sb strings.Builder
	sb.WriteString("source=")
	sb.WriteString(url.QueryEscape(string(s.Source)))
	sb.WriteString("&op=")
	sb.WriteString(url.QueryEscape(string(s.Operation)))
	sb.WriteString("&q=")
	sb.WriteString(url.QueryEscape(s.Query))
	sb.WriteString("&id=")
	sb.WriteString(url.QueryEscape(s.ID))
	sb.WriteString("&offset=")
	sb.WriteString(strconv.Itoa(s.Offset))
	sb.WriteString("&limit=")
	sb.WriteString(strconv.Itoa(s.Limit))
	sb.WriteString("&cont=")
	sb.WriteString(url.QueryEscape(s.Continuation))

	if len(s.Filters) > 0 {
		keys := make([]string, 0, len(s.Filters))
		for k := range s.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString("&f:")
			sb.WriteString(url.QueryEscape(k))
			sb.WriteString("=")
			sb.WriteString(url.QueryEscape(s.Filters[k]))
		}
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
