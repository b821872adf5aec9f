// Package scrape implements the multi-source job board scraper: per-source
// extraction rules, the page fetcher, the listing parser, pagination and
// cross-source deduplication.
package scrape

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Rules describes how to pull job listings out of one board. The scraper and
// parser are generic; everything board-specific lives in this value.
type Rules struct {
	Name              string
	HostURL           string
	SearchURL         func(query string, page int) string
	Headers           map[string]string

	// Job card selection. Pagination stops when a page yields fewer cards
	// than Threshold (the board renders a full page when more results exist).
	CardSelector string
	Threshold    int

	// Field selectors applied per card. An empty selector means the board
	// does not expose that field. Company and date selectors read the
	// data-company / datetime attributes before falling back to text.
	TitleSelector   string
	CompanySelector string
	LocationSelector string
	URLSelector     string
	DateSelector    string
	SnippetSelector string

	// Ordered selectors for the detail-page description (deep mode).
	DescriptionSelectors []string
}

var slugRe = regexp.MustCompile(`\s+`)

// slugify collapses whitespace to dashes and lowercases, the query form
// duunitori.fi expects in its search path.
func slugify(q string) string {
	return url.QueryEscape(slugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(q)), "-"))
}

// chromeUA mimics a desktop Chrome; several boards serve a stripped page to
// unknown agents.
const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/122.0.0.0 Safari/537.36"

// Duunitori scrapes duunitori.fi (Finnish job board).
var Duunitori = Rules{
	Name:    "duunitori",
	HostURL: "https://duunitori.fi",
	SearchURL: func(query string, page int) string {
		return fmt.Sprintf("https://duunitori.fi/tyopaikat/haku/%s?sivu=%d", slugify(query), page)
	},
	Headers: map[string]string{
		"User-Agent":      chromeUA,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "fi-FI,fi;q=0.9,en;q=0.8",
		"Connection":      "keep-alive",
	},
	CardSelector:     ".grid-sandbox.grid-sandbox--tight-bottom.grid-sandbox--tight-top .grid.grid--middle.job-box.job-box--lg",
	Threshold:        20,
	TitleSelector:    ".job-box__title",
	CompanySelector:  ".job-box__hover.gtm-search-result",
	LocationSelector: ".job-box__job-location",
	URLSelector:      ".job-box__hover.gtm-search-result",
	DateSelector:     ".job-box__job-posted",
	DescriptionSelectors: []string{
		".gtm-apply-clicks.description.description--jobentry",
	},
}

// Jobly scrapes jobly.fi (Finnish job board, English UI).
var Jobly = Rules{
	Name:    "jobly",
	HostURL: "https://www.jobly.fi",
	SearchURL: func(query string, page int) string {
		return fmt.Sprintf("https://www.jobly.fi/en/jobs?search=%s&page=%d",
			url.QueryEscape(strings.TrimSpace(query)), page)
	},
	Headers: map[string]string{
		"User-Agent":      chromeUA,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9,fi;q=0.8",
		"Connection":      "keep-alive",
		"Referer":         "https://www.jobly.fi/",
	},
	CardSelector:     ".views-row",
	Threshold:        10,
	TitleSelector:    ".node__title a",
	CompanySelector:  ".recruiter-company-profile-job-organization a",
	LocationSelector: ".location span",
	URLSelector:      ".node__title a",
	DateSelector:     ".date",
	DescriptionSelectors: []string{
		".field.field--name-body.field--type-text-with-summary.field--label-hidden",
	},
}

// Boards is the built-in rule table keyed by source name.
var Boards = map[string]Rules{
	Duunitori.Name: Duunitori,
	Jobly.Name:     Jobly,
}

// SelectBoards resolves the requested board names against the rule table,
// keeping request order and dropping unknown names. An empty request means
// all boards (stable order).
func SelectBoards(names []string) []Rules {
	if len(names) == 0 {
		return []Rules{Duunitori, Jobly}
	}
	var out []Rules
	for _, n := range names {
		if r, ok := Boards[strings.ToLower(strings.TrimSpace(n))]; ok {
			out = append(out, r)
		}
	}
	return out
}
