package scrape

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters stripped during URL normalization.
// Boards decorate outbound links with these, so the same posting shows up
// under several URL shapes.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true,
	"ref": true, "source": true, "gclid": true, "fbclid": true,
}

// Dedupe removes duplicate listings, keeping first-seen order. Identity is
// two-tier: the normalized URL when usable, otherwise folded title+company.
// The same vacancy frequently appears verbatim across boards with different
// URL shapes, so URL alone under-deduplicates; title+company alone would
// over-deduplicate distinct postings that share a generic title. First
// occurrence wins; later duplicates are dropped without field merging.
func Dedupe(listings []RawListing) []RawListing {
	seen := make(map[string]bool, len(listings))
	out := make([]RawListing, 0, len(listings))
	for _, l := range listings {
		key := identityKey(l)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

// identityKey derives the canonical identity of a listing.
func identityKey(l RawListing) string {
	if u := normalizeURL(l.URL); u != "" {
		return "u:" + u
	}
	title := foldSpace(l.Title)
	company := foldSpace(l.Company)
	if title == "" && company == "" {
		return ""
	}
	return "tc:" + title + "|" + company
}

// normalizeURL lowercases the host, strips tracking parameters, the fragment
// and any trailing slash.
func normalizeURL(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for p := range q {
		if trackingParams[strings.ToLower(p)] {
			q.Del(p)
		}
	}
	u.RawQuery = q.Encode()

	s := u.String()
	return strings.TrimSuffix(s, "/")
}

// foldSpace lowercases and collapses runs of whitespace to single spaces.
func foldSpace(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
