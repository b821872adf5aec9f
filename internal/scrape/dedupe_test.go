package scrape

import (
	"reflect"
	"testing"
)

func TestDedupeByURL(t *testing.T) {
	in := []RawListing{
		{Title: "A", URL: "https://jobs.example.com/1"},
		{Title: "B", URL: "https://jobs.example.com/2"},
		{Title: "A again", URL: "https://JOBS.example.com/1"},
	}
	out := Dedupe(in)
	if len(out) != 2 {
		t.Fatalf("got %d listings, want 2", len(out))
	}
	// First occurrence wins; order preserved.
	if out[0].Title != "A" || out[1].Title != "B" {
		t.Fatalf("order broken: %+v", out)
	}
}

func TestDedupeStripsTrackingParams(t *testing.T) {
	in := []RawListing{
		{Title: "A", URL: "https://jobs.example.com/1?utm_source=feed&utm_campaign=x"},
		{Title: "A", URL: "https://jobs.example.com/1"},
		{Title: "A", URL: "https://jobs.example.com/1#apply"},
		{Title: "A", URL: "https://jobs.example.com/1/"},
	}
	if out := Dedupe(in); len(out) != 1 {
		t.Fatalf("got %d listings, want 1: %+v", len(out), out)
	}
}

func TestDedupeKeepsDistinctQueryParams(t *testing.T) {
	in := []RawListing{
		{URL: "https://jobs.example.com/view?id=1"},
		{URL: "https://jobs.example.com/view?id=2"},
	}
	if out := Dedupe(in); len(out) != 2 {
		t.Fatalf("distinct ids collapsed: %+v", out)
	}
}

func TestDedupeTitleCompanyFallback(t *testing.T) {
	in := []RawListing{
		{Title: "Go Developer", Company: "Acme Oy"},
		{Title: "  go   developer ", Company: "ACME OY"},
		{Title: "Go Developer", Company: "Beta Ab"},
	}
	out := Dedupe(in)
	if len(out) != 2 {
		t.Fatalf("got %d listings, want 2: %+v", len(out), out)
	}
	if out[0].Company != "Acme Oy" || out[1].Company != "Beta Ab" {
		t.Fatalf("wrong survivors: %+v", out)
	}
}

func TestDedupeURLBeatsTitleCompany(t *testing.T) {
	// Same title+company under different URLs are distinct postings.
	in := []RawListing{
		{Title: "Developer", Company: "Acme", URL: "https://jobs.example.com/1"},
		{Title: "Developer", Company: "Acme", URL: "https://jobs.example.com/2"},
	}
	if out := Dedupe(in); len(out) != 2 {
		t.Fatalf("distinct URLs collapsed: %+v", out)
	}
}

func TestDedupeDropsEmptyIdentity(t *testing.T) {
	in := []RawListing{
		{Snippet: "no identity at all"},
		{Title: "Kept", Company: "Acme"},
	}
	out := Dedupe(in)
	if len(out) != 1 || out[0].Title != "Kept" {
		t.Fatalf("got %+v, want only the identifiable listing", out)
	}
}

func TestDedupeIdempotent(t *testing.T) {
	in := []RawListing{
		{Title: "A", URL: "https://jobs.example.com/1?utm_source=x"},
		{Title: "B", Company: "Acme"},
		{Title: "A", URL: "https://jobs.example.com/1"},
	}
	once := Dedupe(in)
	twice := Dedupe(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("dedupe not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}
