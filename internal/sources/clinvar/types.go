// Package clinvar provides a client for the NCBI ClinVar database via the
// E-utilities JSON endpoints.
//
// ClinVar aggregates reports of the relationships among human genetic
// variants and phenotypes. Records describe variations and their clinical
// significance rather than publications.
package clinvar

// ESummaryResult models the retmode=json esummary response for db=clinvar.
// Variation entries are keyed by UID, so they are held raw and decoded per
// UID.
type ESummaryResult struct {
	Result map[string]jsonRaw `json:"result"`
}

type jsonRaw []byte

func (r *jsonRaw) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// VariationSummary is a single ClinVar variation record.
type VariationSummary struct {
	UID                  string               `json:"uid"`
	ObjType              string               `json:"obj_type"`
	Accession            string               `json:"accession"`
	AccessionVersion     string               `json:"accession_version"`
	Title                string               `json:"title"`
	ClinicalSignificance ClinicalSignificance `json:"clinical_significance"`
	Genes                []Gene               `json:"genes"`
	VariationSet         []VariationSet       `json:"variation_set"`
	TraitSet             []Trait              `json:"trait_set"`
}

// ClinicalSignificance holds the aggregate clinical interpretation.
type ClinicalSignificance struct {
	Description   string `json:"description"`
	LastEvaluated string `json:"last_evaluated"`
	ReviewStatus  string `json:"review_status"`
}

// Gene is a gene associated with a variation.
type Gene struct {
	Symbol   string `json:"symbol"`
	GeneID   string `json:"GeneID"`
	Strand   string `json:"strand"`
	Source   string `json:"source"`
}

// VariationSet describes one representation of the variation.
type VariationSet struct {
	VariationName string `json:"variation_name"`
	CDNAChange    string `json:"cdna_change"`
	CanonicalSPDI string `json:"canonical_spdi"`
}

// Trait is a condition associated with the variation.
type Trait struct {
	TraitName string `json:"trait_name"`
}
