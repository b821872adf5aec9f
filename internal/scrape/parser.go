package scrape

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ParsePage applies the rule set to a search-results page and returns the
// listings it contains. Zero listings is the pagination stop signal, not an
// error: boards render a no-results page in the same shape as a normal one.
//
// Field selectors fail independently: a card with a missing title or company
// still produces a listing with empty-string fields. Only a card without a
// resolvable URL is dropped, since the URL is the listing's identity.
func ParsePage(body []byte, rules Rules) []RawListing {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		slog.Warn("parse: invalid HTML", slog.String("source", rules.Name), slog.Any("error", err))
		return nil
	}

	var listings []RawListing
	doc.Find(rules.CardSelector).Each(func(_ int, card *goquery.Selection) {
		l := parseCard(card, rules)
		if l.URL == "" {
			slog.Warn("parse: card without URL dropped",
				slog.String("source", rules.Name),
				slog.String("selector", rules.URLSelector),
				slog.String("title", l.Title))
			return
		}
		if l.Title == "" || l.Company == "" || l.Location == "" {
			slog.Debug("parse: card with missing fields",
				slog.String("source", rules.Name),
				slog.String("title", l.Title),
				slog.String("company", l.Company),
				slog.String("location", l.Location),
				slog.String("url", l.URL))
		}
		listings = append(listings, l)
	})
	return listings
}

func parseCard(card *goquery.Selection, rules Rules) RawListing {
	l := RawListing{Source: rules.Name}

	l.Title = selectText(card, rules.TitleSelector)

	// Some boards carry the company in a data attribute rather than text.
	if company := card.Find(rules.CompanySelector).First(); company.Length() > 0 {
		if v, ok := company.Attr("data-company"); ok {
			l.Company = strings.TrimSpace(v)
		} else {
			l.Company = strings.TrimSpace(company.Text())
		}
	}

	l.Location = selectText(card, rules.LocationSelector)
	l.Snippet = selectText(card, rules.SnippetSelector)

	if date := card.Find(rules.DateSelector).First(); date.Length() > 0 {
		if v, ok := date.Attr("datetime"); ok {
			l.PublishedDate = strings.TrimSpace(v)
		} else {
			l.PublishedDate = strings.TrimSpace(date.Text())
		}
	}

	href := selectHref(card, rules.URLSelector)
	if href == "" {
		// Fall back to the title link, which on most boards is the job link.
		href = selectHref(card, rules.TitleSelector)
	}
	l.URL = resolveURL(rules.HostURL, href)
	return l
}

func selectText(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(selector).First().Text())
}

func selectHref(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	sel := s.Find(selector).First()
	if href, ok := sel.Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	// The selector may match the <a> through a child; check the enclosing
	// selection itself.
	if sel.Length() > 0 {
		if href, ok := sel.Find("a").First().Attr("href"); ok {
			return strings.TrimSpace(href)
		}
	}
	return ""
}

// resolveURL makes href absolute against the board's host URL.
func resolveURL(host, href string) string {
	if href == "" {
		return ""
	}
	base, err := url.Parse(host)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// ParseFullDescription extracts the full job description from a detail page,
// trying the rule's selectors in order and stopping at the first match. The
// matched fragment is converted to markdown for readable text; if conversion
// fails the raw text nodes are collected instead. Returns ok=false when no
// selector matches — callers degrade the listing, never fail it.
func ParseFullDescription(body []byte, selectors []string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		fragment, err := goquery.OuterHtml(sel)
		if err != nil {
			fragment = ""
		}
		text := ""
		if fragment != "" {
			if md, err := htmltomarkdown.ConvertString(fragment); err == nil {
				text = strings.TrimSpace(md)
			} else {
				text = strings.TrimSpace(collectText(fragment))
			}
		}
		if text == "" {
			text = strings.TrimSpace(sel.Text())
		}
		if text != "" {
			return text, true
		}
	}

	slog.Debug("parse: no description selector matched",
		slog.Int("selectors_tried", len(selectors)),
		slog.Any("selectors", selectors))
	return "", false
}

// collectText walks an HTML fragment and concatenates its text nodes.
func collectText(fragment string) string {
	node, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return sb.String()
}
