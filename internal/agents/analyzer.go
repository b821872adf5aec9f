package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jobsai/jobsai/internal/score"
)

// Analyzer writes the match analysis for the top-scored listings.
type Analyzer struct {
	LLM Completer

	// TopN bounds how many listings reach the model; 0 means the default.
	TopN int

	// ContentLimit truncates each listing's description in the prompt;
	// 0 means the default.
	ContentLimit int
}

const (
	defaultTopN         = 10
	defaultContentLimit = 1500
)

// Analyze returns a plain-text analysis of the given ranked listings. The
// listings must already be in rank order; only the top N are sent.
func (a *Analyzer) Analyze(ctx context.Context, profile *score.Profile, ranked []score.ScoredListing) (string, error) {
	if len(ranked) == 0 {
		return "", errors.New("analyze: no listings to analyze")
	}
	topN := a.TopN
	if topN <= 0 {
		topN = defaultTopN
	}
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	limit := a.ContentLimit
	if limit <= 0 {
		limit = defaultContentLimit
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(analyzePrompt, profileJSON, listingsText(ranked, limit))

	analysis, err := complete(ctx, a.LLM, "", prompt)
	if err != nil {
		return "", fmt.Errorf("analyze: %w", err)
	}
	if analysis == "" {
		return "", errors.New("analyze: empty response")
	}
	return analysis, nil
}
