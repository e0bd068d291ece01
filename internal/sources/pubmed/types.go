// Package pubmed provides a client for the NCBI PubMed E-utilities API.
//
// PubMed is a biomedical literature database maintained by NCBI. This
// package implements the sources.SourceClient interface plus the optional
// Summarizer (esummary) and Linker (elink) capabilities.
//
// The E-utilities API documentation is available at:
// https://www.ncbi.nlm.nih.gov/books/NBK25499/
package pubmed

import "encoding/xml"

// ESearchResult represents the response from the esearch.fcgi endpoint.
// With usehistory=y it also carries the history-server handle (WebEnv and
// QueryKey) that later pages are fetched against.
type ESearchResult struct {
	XMLName   xml.Name   `xml:"eSearchResult"`
	Count     int        `xml:"Count"`
	RetMax    int        `xml:"RetMax"`
	RetStart  int        `xml:"RetStart"`
	IDList    IDList     `xml:"IdList"`
	QueryKey  string     `xml:"QueryKey,omitempty"`
	WebEnv    string     `xml:"WebEnv,omitempty"`
	ErrorList *ErrorList `xml:"ErrorList,omitempty"`
}

// IDList contains the list of PMIDs returned by a search.
type IDList struct {
	IDs []string `xml:"Id"`
}

// ErrorList contains errors from the E-utilities API.
type ErrorList struct {
	PhraseNotFound []string `xml:"PhraseNotFound,omitempty"`
	FieldNotFound  []string `xml:"FieldNotFound,omitempty"`
}

// PubmedArticleSet represents the response from the efetch.fcgi endpoint.
type PubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []PubmedArticle `xml:"PubmedArticle"`
}

// PubmedArticle represents a single article in the PubMed database.
type PubmedArticle struct {
	MedlineCitation MedlineCitation `xml:"MedlineCitation"`
	PubmedData      PubmedData      `xml:"PubmedData"`
}

// MedlineCitation contains the core bibliographic information.
type MedlineCitation struct {
	PMID            PMID             `xml:"PMID"`
	Article         Article          `xml:"Article"`
	MeshHeadingList *MeshHeadingList `xml:"MeshHeadingList,omitempty"`
	KeywordList     *KeywordList     `xml:"KeywordList,omitempty"`
}

// PMID represents the PubMed identifier with optional version.
type PMID struct {
	Version int    `xml:"Version,attr,omitempty"`
	Value   string `xml:",chardata"`
}

// Article contains the article metadata.
type Article struct {
	Journal      Journal       `xml:"Journal"`
	ArticleTitle string        `xml:"ArticleTitle"`
	Pagination   *Pagination   `xml:"Pagination,omitempty"`
	ELocationID  []ELocationID `xml:"ELocationID,omitempty"`
	Abstract     *Abstract     `xml:"Abstract,omitempty"`
	AuthorList   *AuthorList   `xml:"AuthorList,omitempty"`
	Language     []string      `xml:"Language,omitempty"`
	ArticleDate  []ArticleDate `xml:"ArticleDate,omitempty"`
}

// Journal contains journal information.
type Journal struct {
	ISSN            *ISSN        `xml:"ISSN,omitempty"`
	JournalIssue    JournalIssue `xml:"JournalIssue"`
	Title           string       `xml:"Title,omitempty"`
	ISOAbbreviation string       `xml:"ISOAbbreviation,omitempty"`
}

// ISSN represents the journal ISSN.
type ISSN struct {
	IssnType string `xml:"IssnType,attr,omitempty"`
	Value    string `xml:",chardata"`
}

// JournalIssue contains the volume, issue, and publication date.
type JournalIssue struct {
	CitedMedium string  `xml:"CitedMedium,attr,omitempty"`
	Volume      string  `xml:"Volume,omitempty"`
	Issue       string  `xml:"Issue,omitempty"`
	PubDate     PubDate `xml:"PubDate"`
}

// PubDate represents the publication date which may have various formats.
type PubDate struct {
	Year        string `xml:"Year,omitempty"`
	Month       string `xml:"Month,omitempty"`
	Day         string `xml:"Day,omitempty"`
	Season      string `xml:"Season,omitempty"`
	MedlineDate string `xml:"MedlineDate,omitempty"`
}

// Pagination contains page information.
type Pagination struct {
	StartPage  string `xml:"StartPage,omitempty"`
	EndPage    string `xml:"EndPage,omitempty"`
	MedlinePgn string `xml:"MedlinePgn,omitempty"`
}

// ELocationID represents an electronic location identifier (DOI or PII).
type ELocationID struct {
	EIdType string `xml:"EIdType,attr"`
	Valid   string `xml:"ValidYN,attr,omitempty"`
	Value   string `xml:",chardata"`
}

// Abstract contains the article abstract, which may have multiple sections.
type Abstract struct {
	AbstractTexts []AbstractText `xml:"AbstractText"`
	CopyrightInfo string         `xml:"CopyrightInformation,omitempty"`
}

// AbstractText represents a section of the abstract. Structured abstracts
// have labeled sections (Background, Methods, Results, etc.).
type AbstractText struct {
	Label       string `xml:"Label,attr,omitempty"`
	NlmCategory string `xml:"NlmCategory,attr,omitempty"`
	Value       string `xml:",chardata"`
}

// AuthorList contains the list of authors.
type AuthorList struct {
	CompleteYN string   `xml:"CompleteYN,attr,omitempty"`
	Authors    []Author `xml:"Author"`
}

// Author represents a single author with name and optional identifiers.
type Author struct {
	ValidYN         string            `xml:"ValidYN,attr,omitempty"`
	LastName        string            `xml:"LastName,omitempty"`
	ForeName        string            `xml:"ForeName,omitempty"`
	Initials        string            `xml:"Initials,omitempty"`
	CollectiveName  string            `xml:"CollectiveName,omitempty"`
	Identifiers     []Identifier      `xml:"Identifier,omitempty"`
	AffiliationInfo []AffiliationInfo `xml:"AffiliationInfo,omitempty"`
}

// Identifier represents an author identifier (e.g., ORCID).
type Identifier struct {
	Source string `xml:"Source,attr"`
	Value  string `xml:",chardata"`
}

// AffiliationInfo contains author affiliation information.
type AffiliationInfo struct {
	Affiliation string `xml:"Affiliation"`
}

// ArticleDate represents the article publication date.
type ArticleDate struct {
	DateType string `xml:"DateType,attr,omitempty"`
	Year     string `xml:"Year"`
	Month    string `xml:"Month,omitempty"`
	Day      string `xml:"Day,omitempty"`
}

// MeshHeadingList contains the MeSH terms assigned to the article.
type MeshHeadingList struct {
	MeshHeadings []MeshHeading `xml:"MeshHeading"`
}

// MeshHeading represents a MeSH descriptor with optional qualifiers.
type MeshHeading struct {
	DescriptorName DescriptorName `xml:"DescriptorName"`
}

// DescriptorName represents a MeSH descriptor.
type DescriptorName struct {
	UI         string `xml:"UI,attr,omitempty"`
	MajorTopic string `xml:"MajorTopicYN,attr,omitempty"`
	Value      string `xml:",chardata"`
}

// KeywordList contains author-provided keywords.
type KeywordList struct {
	Owner    string    `xml:"Owner,attr,omitempty"`
	Keywords []Keyword `xml:"Keyword"`
}

// Keyword represents a single keyword.
type Keyword struct {
	MajorTopic string `xml:"MajorTopicYN,attr,omitempty"`
	Value      string `xml:",chardata"`
}

// PubmedData contains additional PubMed-specific data.
type PubmedData struct {
	PublicationStatus string        `xml:"PublicationStatus,omitempty"`
	ArticleIdList     ArticleIdList `xml:"ArticleIdList"`
}

// ArticleIdList contains various identifiers for the article.
type ArticleIdList struct {
	ArticleIds []ArticleId `xml:"ArticleId"`
}

// ArticleId represents an article identifier (PMID, DOI, PMC, etc.).
type ArticleId struct {
	IdType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// ESummaryResult models the retmode=json version=2.0 esummary response.
// Record entries are keyed by UID, so they are held raw and decoded per UID.
type ESummaryResult struct {
	Result map[string]jsonRaw `json:"result"`
}

type jsonRaw []byte

func (r *jsonRaw) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// DocSummary is a single esummary document record.
type DocSummary struct {
	UID          string                `json:"uid"`
	Title        string                `json:"title"`
	Source       string                `json:"source"`
	FullJournal  string                `json:"fulljournalname"`
	Volume       string                `json:"volume"`
	Issue        string                `json:"issue"`
	Pages        string                `json:"pages"`
	PubDate      string                `json:"pubdate"`
	EPubDate     string                `json:"epubdate"`
	ELocationID  string                `json:"elocationid"`
	SortPubDate  string                `json:"sortpubdate"`
	Authors      []DocSummaryAuthor    `json:"authors"`
	ArticleIDs   []DocSummaryArticleID `json:"articleids"`
	RecordStatus string                `json:"recordstatus"`
}

// DocSummaryAuthor is an author entry in an esummary record.
type DocSummaryAuthor struct {
	Name     string `json:"name"`
	AuthType string `json:"authtype"`
}

// DocSummaryArticleID is an identifier entry in an esummary record.
type DocSummaryArticleID struct {
	IDType string `json:"idtype"`
	Value  string `json:"value"`
}

// ELinkResult models the retmode=json elink cmd=neighbor response.
type ELinkResult struct {
	LinkSets []ELinkSet `json:"linksets"`
}

// ELinkSet is one linkset in an elink response.
type ELinkSet struct {
	DBFrom     string       `json:"dbfrom"`
	IDs        []string     `json:"ids"`
	LinkSetDBs []ELinkSetDB `json:"linksetdbs"`
}

// ELinkSetDB is a group of links to one target database.
type ELinkSetDB struct {
	DBTo     string   `json:"dbto"`
	LinkName string   `json:"linkname"`
	Links    []string `json:"links"`
}
