// Package crossref provides a client for the CrossRef REST API.
//
// CrossRef indexes scholarly works by DOI across publishers. Requests that
// identify themselves with a contact email (the "polite pool") get more
// reliable service, so the client appends mailto when an email is
// configured.
//
// The API documentation is available at:
// https://api.crossref.org/swagger-ui/index.html
package crossref

// WorkListResponse is the envelope for /works list queries.
type WorkListResponse struct {
	Status  string      `json:"status"`
	Message WorkListMsg `json:"message"`
}

// WorkListMsg carries the items and paging totals of a list query.
type WorkListMsg struct {
	TotalResults int    `json:"total-results"`
	Items        []Work `json:"items"`
}

// WorkResponse is the envelope for single-work lookups (/works/{doi}).
type WorkResponse struct {
	Status  string `json:"status"`
	Message Work   `json:"message"`
}

// Work is a single CrossRef work record.
type Work struct {
	DOI            string       `json:"DOI"`
	Type           string       `json:"type"`
	Title          []string     `json:"title"`
	ContainerTitle []string     `json:"container-title"`
	Abstract       string       `json:"abstract"`
	Author         []WorkAuthor `json:"author"`
	Issued         WorkDate     `json:"issued"`
	Volume         string       `json:"volume"`
	Issue          string       `json:"issue"`
	Page           string       `json:"page"`
	Publisher      string       `json:"publisher"`
	URL            string       `json:"URL"`
	Link           []WorkLink   `json:"link"`
	ISSN           []string     `json:"ISSN"`
	Subject        []string     `json:"subject"`
}

// WorkAuthor is an author entry on a work.
type WorkAuthor struct {
	Given       string            `json:"given"`
	Family      string            `json:"family"`
	Name        string            `json:"name"`
	ORCID       string            `json:"ORCID"`
	Affiliation []WorkAffiliation `json:"affiliation"`
}

// WorkAffiliation is an affiliation entry on an author.
type WorkAffiliation struct {
	Name string `json:"name"`
}

// WorkDate is a CrossRef partial date ([[year, month, day]], possibly
// truncated to year or year+month).
type WorkDate struct {
	DateParts [][]int `json:"date-parts"`
}

// WorkLink is a full-text link entry on a work.
type WorkLink struct {
	URL         string `json:"URL"`
	ContentType string `json:"content-type"`
}
