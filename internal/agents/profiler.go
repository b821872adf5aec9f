package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jobsai/jobsai/internal/score"
)

// Profiler builds a candidate profile from questionnaire answers.
type Profiler struct {
	LLM Completer
}

// Build asks the model for a structured profile and parses it. Malformed JSON
// is retried with backoff: re-asking usually fixes it, and the profile gates
// every later phase.
func (p *Profiler) Build(ctx context.Context, questionnaire string) (*score.Profile, error) {
	prompt := fmt.Sprintf(profilePrompt, questionnaire)

	operation := func() (*score.Profile, error) {
		raw, err := complete(ctx, p.LLM, "", prompt)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		var profile score.Profile
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			return nil, fmt.Errorf("profile: parse failed on %q: %w", raw, err)
		}
		return &profile, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3))
}
