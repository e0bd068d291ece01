// Package medgen provides a client for the NCBI MedGen database via the
// E-utilities JSON endpoints.
//
// MedGen aggregates information about human medical genetics concepts:
// conditions, phenotypes, and their relationships to genes. Unlike the
// literature sources, its records describe concepts rather than papers.
package medgen

// ESummaryResult models the retmode=json esummary response for db=medgen.
// Concept entries are keyed by UID, so they are held raw and decoded per
// UID.
type ESummaryResult struct {
	Result map[string]jsonRaw `json:"result"`
}

type jsonRaw []byte

func (r *jsonRaw) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// ConceptSummary is a single MedGen concept record.
type ConceptSummary struct {
	UID         string      `json:"uid"`
	ConceptID   string      `json:"conceptid"`
	Title       string      `json:"title"`
	Definition  string      `json:"definition"`
	SemanticID  string      `json:"semanticid"`
	SemanticTyp string      `json:"semantictype"`
	Names       []NameEntry `json:"names"`
}

// NameEntry is an alternative name for a concept.
type NameEntry struct {
	Name   string `json:"name"`
	SAB    string `json:"sab"`
	TTY    string `json:"tty"`
	SCUI   string `json:"scui"`
	SDUI   string `json:"sdui"`
	Suppr  string `json:"suppressible"`
	Prefer string `json:"ispreferred"`
}
