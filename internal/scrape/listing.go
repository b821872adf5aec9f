package scrape

// RawListing is one job listing as extracted from a board. URL is always
// non-empty for listings that survive parsing; every other field may be an
// empty string when the board or the selectors did not yield it.
type RawListing struct {
	Source          string `json:"source"`
	Title           string `json:"title"`
	Company         string `json:"company"`
	Location        string `json:"location"`
	URL             string `json:"url"`
	PublishedDate   string `json:"published_date"`
	Snippet         string `json:"description_snippet"`
	FullDescription string `json:"full_description"`
	Query           string `json:"query_used"`
}

// CombinedText returns the searchable text of the listing, used by the
// scoring engine.
func (l RawListing) CombinedText() string {
	return l.Title + " " + l.Snippet + " " + l.FullDescription
}

// Diagnostic records a per-source or per-page problem that did not fail the
// scrape. Diagnostics are operational data and are never exposed to clients.
type Diagnostic struct {
	Source string
	Query  string
	Page   int
	Reason string
}
