package score

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/jobsai/jobsai/internal/scrape"
)

// Component weights. Each component is normalized to [0,1] before weighting
// so no single component can dominate by scale alone.
const (
	weightTechnology = 0.55
	weightFreeText   = 0.25
	weightRecency    = 0.20
)

// recencyWindow is the age beyond which a dated listing earns no recency
// bonus; recencyNeutral is the fixed contribution for undated listings.
const (
	recencyWindow  = 30 * 24 * time.Hour
	recencyNeutral = 0.5
)

// Breakdown carries the per-component values behind a score, kept for
// explainability and tests.
type Breakdown struct {
	Technology float64  `json:"technology"`
	FreeText   float64  `json:"free_text"`
	Recency    float64  `json:"recency"`
	Matched    []string `json:"matched_skills"`
	Missing    []string `json:"missing_skills"`
}

// ScoredListing wraps a raw listing with its relevance score.
type ScoredListing struct {
	scrape.RawListing
	Score     float64   `json:"score"`
	Breakdown Breakdown `json:"score_breakdown"`
}

// Score computes the relevance of one listing for the candidate. now anchors
// the recency component; passing a fixed time makes the function fully
// deterministic.
func Score(l scrape.RawListing, p Profile, now time.Time) ScoredListing {
	tech, matched, missing := technologyComponent(l, p)
	text := freeTextComponent(l, p)
	recency := recencyComponent(l, now)

	raw := (weightTechnology*tech + weightFreeText*text + weightRecency*recency) * 100
	// Round to one decimal for stable comparisons in output.
	score := float64(int(raw*10+0.5)) / 10

	return ScoredListing{
		RawListing: l,
		Score:      score,
		Breakdown: Breakdown{
			Technology: tech,
			FreeText:   text,
			Recency:    recency,
			Matched:    matched,
			Missing:    missing,
		},
	}
}

// Rank scores all listings and orders them: score descending, then shorter
// title, then lexicographic title order — deterministic for equal scores.
func Rank(listings []scrape.RawListing, p Profile, now time.Time) []ScoredListing {
	scored := make([]ScoredListing, 0, len(listings))
	for _, l := range listings {
		scored = append(scored, Score(l, p, now))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if len(scored[i].Title) != len(scored[j].Title) {
			return len(scored[i].Title) < len(scored[j].Title)
		}
		return scored[i].Title < scored[j].Title
	})
	return scored
}

// technologyComponent measures overlap between the candidate's rated
// technologies and the listing text. Each rated technology contributes its
// experience level, so the component is both proportional to how many rated
// technologies the listing mentions and weighted toward the candidate's
// strongest skills.
func technologyComponent(l scrape.RawListing, p Profile) (float64, []string, []string) {
	text := strings.ToLower(l.CombinedText())

	var matched, missing []string
	levelSum, matchedSum := 0, 0
	for _, tech := range sortedTechnologies(p) {
		level := p.Technologies[tech]
		if level <= 0 {
			continue
		}
		levelSum += level
		if strings.Contains(text, strings.ToLower(tech)) {
			matchedSum += level
			matched = append(matched, tech)
		} else {
			missing = append(missing, tech)
		}
	}
	if levelSum == 0 {
		return 0, nil, nil
	}
	return float64(matchedSum) / float64(levelSum), matched, missing
}

// sortedTechnologies returns the rated technology names in stable order.
func sortedTechnologies(p Profile) []string {
	names := make([]string, 0, len(p.Technologies))
	for name := range p.Technologies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// freeTextComponent measures token overlap between the candidate's free-text
// description and the listing text, normalized by the description length so
// long-winded descriptions are not rewarded.
func freeTextComponent(l scrape.RawListing, p Profile) float64 {
	profileTokens := tokenize(p.Description)
	if len(profileTokens) == 0 {
		return 0
	}
	listingTokens := tokenize(l.CombinedText())

	overlap := 0
	for t := range profileTokens {
		if listingTokens[t] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(profileTokens))
}

// recencyComponent gives a linearly decaying bonus for recent listings.
// Listings without a usable date get the neutral value: sources that omit
// dates must not be punished for it.
func recencyComponent(l scrape.RawListing, now time.Time) float64 {
	if strings.TrimSpace(l.PublishedDate) == "" {
		return recencyNeutral
	}
	published, err := dateparse.ParseAny(l.PublishedDate)
	if err != nil {
		slog.Debug("score: unparseable published date",
			slog.String("source", l.Source),
			slog.String("date", l.PublishedDate))
		return recencyNeutral
	}
	age := now.Sub(published)
	if age < 0 {
		age = 0
	}
	if age >= recencyWindow {
		return 0
	}
	return 1 - float64(age)/float64(recencyWindow)
}
