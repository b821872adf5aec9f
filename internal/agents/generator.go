package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jobsai/jobsai/internal/score"
)

// Generator writes cover letters from the analysis phase's output.
type Generator struct {
	LLM Completer
}

// maxCoverLetters matches the payload validation ceiling; a request that
// passed validation is never silently shortened.
const maxCoverLetters = 10

// CoverLetters generates n letters in the requested style. The model is asked
// for a JSON array; a response with the wrong shape is retried.
func (g *Generator) CoverLetters(ctx context.Context, profile *score.Profile, analysis, style string, n int) ([]string, error) {
	if n <= 0 {
		n = 1
	}
	if n > maxCoverLetters {
		n = maxCoverLetters
	}
	if style == "" {
		style = "professional"
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(coverLetterPrompt, n, style, n, profileJSON, analysis)

	operation := func() ([]string, error) {
		raw, err := complete(ctx, g.LLM, "", prompt)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		var letters []string
		if err := json.Unmarshal([]byte(raw), &letters); err != nil {
			return nil, fmt.Errorf("letters: parse failed on %q: %w", raw, err)
		}
		if len(letters) == 0 {
			return nil, fmt.Errorf("letters: empty array")
		}
		if len(letters) > n {
			letters = letters[:n]
		}
		return letters, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3))
}
