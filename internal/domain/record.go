// Package domain holds the core types shared across the fetch coordinator:
// normalized records, request specifications, and the error taxonomy.
package domain

import (
	"strings"
	"time"
)

// SourceType identifies an external scientific database.
type SourceType string

// Supported source types.
const (
	SourceTypePubMed   SourceType = "pubmed"
	SourceTypeArXiv    SourceType = "arxiv"
	SourceTypeMedGen   SourceType = "medgen"
	SourceTypeClinVar  SourceType = "clinvar"
	SourceTypeCrossRef SourceType = "crossref"
)

// AllSourceTypes lists every source type the coordinator knows about.
var AllSourceTypes = []SourceType{
	SourceTypePubMed,
	SourceTypeArXiv,
	SourceTypeMedGen,
	SourceTypeClinVar,
	SourceTypeCrossRef,
}

// ParseSourceType converts a string into a SourceType.
// Returns false if the string does not name a known source.
func ParseSourceType(s string) (SourceType, bool) {
	st := SourceType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllSourceTypes {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// RecordIdentifiers holds all possible identifiers for a retrieved record.
type RecordIdentifiers struct {
	DOI       string
	ArXivID   string
	PubMedID  string
	PMCID     string
	MedGenUID string
	ClinVarID string
}

// GenerateCanonicalID generates a canonical identifier from record identifiers.
// Priority order: DOI > ArXiv > PubMed > MedGen > ClinVar.
// Returns empty string if no identifiers are available.
func GenerateCanonicalID(ids RecordIdentifiers) string {
	if doi := strings.TrimSpace(ids.DOI); doi != "" {
		// Normalize DOI to lowercase
		return "doi:" + strings.ToLower(doi)
	}

	if arxiv := strings.TrimSpace(ids.ArXivID); arxiv != "" {
		return "arxiv:" + arxiv
	}

	if pubmed := strings.TrimSpace(ids.PubMedID); pubmed != "" {
		return "pubmed:" + pubmed
	}

	if medgen := strings.TrimSpace(ids.MedGenUID); medgen != "" {
		return "medgen:" + medgen
	}

	if clinvar := strings.TrimSpace(ids.ClinVarID); clinvar != "" {
		return "clinvar:" + clinvar
	}

	return ""
}

// Author represents a record author with optional affiliation and ORCID.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	ORCID       string `json:"orcid,omitempty"`
}

// String returns a formatted string representation of the author.
func (a Author) String() string {
	var sb strings.Builder
	sb.WriteString(a.Name)

	if a.Affiliation != "" {
		sb.WriteString(" (")
		sb.WriteString(a.Affiliation)
		sb.WriteString(")")
	}

	if a.ORCID != "" {
		sb.WriteString(" [")
		sb.WriteString(a.ORCID)
		sb.WriteString("]")
	}

	return sb.String()
}

// Link is a typed hyperlink attached to a record (full text, related
// entries, landing page).
type Link struct {
	Rel  string `json:"rel"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// Record is the source-agnostic representation of a retrieved document or
// metadata entry. Records are immutable once constructed by an adapter.
type Record struct {
	// Source identifies the database the record came from.
	Source SourceType `json:"source"`

	// ID is the source-native identifier (PMID, arXiv ID, DOI, UID, ...).
	// Unique within a given Source.
	ID string `json:"id"`

	// CanonicalID is the cross-source canonical identifier, when derivable.
	CanonicalID string `json:"canonical_id,omitempty"`

	Title           string         `json:"title"`
	Abstract        string         `json:"abstract,omitempty"`
	Authors         []Author       `json:"authors,omitempty"`
	PublicationDate *time.Time     `json:"publication_date,omitempty"`
	PublicationYear int            `json:"publication_year,omitempty"`
	Journal         string         `json:"journal,omitempty"`
	Volume          string         `json:"volume,omitempty"`
	Issue           string         `json:"issue,omitempty"`
	Pages           string         `json:"pages,omitempty"`
	Links           []Link         `json:"links,omitempty"`
	RawMetadata     map[string]any `json:"raw_metadata,omitempty"`
}

// HasIdentifier returns true if the record carries a source-native ID.
func (r *Record) HasIdentifier() bool {
	return r.ID != ""
}
