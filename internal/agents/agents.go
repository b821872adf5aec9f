// Package agents holds the LLM-backed pipeline phases: profiling the
// candidate from questionnaire answers, analyzing the top-scored listings and
// generating cover letters. Each agent takes a Completer so tests can script
// responses without a live model.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"

	"github.com/jobsai/jobsai/internal/metrics"
	"github.com/jobsai/jobsai/internal/score"
)

// Completer is the chat-completion surface the agents need.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Chat adapts a go-kit llm.Client to Completer with a fixed sampling profile.
type Chat struct {
	Client      *llm.Client
	Temperature float64
	MaxTokens   int
}

func (c *Chat) Complete(ctx context.Context, system, prompt string) (string, error) {
	return c.Client.Complete(ctx, system, prompt,
		llm.WithChatTemperature(c.Temperature),
		llm.WithChatMaxTokens(c.MaxTokens),
	)
}

// complete wraps a Completer call with metrics and fence stripping.
func complete(ctx context.Context, c Completer, system, prompt string) (string, error) {
	metrics.IncrLLMCalls()
	raw, err := c.Complete(ctx, system, prompt)
	if err != nil {
		metrics.IncrLLMErrors()
		return "", err
	}
	return stripFences(raw), nil
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// listingsText formats scored listings for LLM context, numbered so the model
// can reference them by index.
func listingsText(listings []score.ScoredListing, contentLimit int) string {
	var sb strings.Builder
	for i, l := range listings {
		fmt.Fprintf(&sb, "\n[%d] %s — %s (%s)\nScore: %.1f\nURL: %s\n", i+1, l.Title, l.Company, l.Location, l.Score, l.URL)
		text := l.FullDescription
		if text == "" {
			text = l.Snippet
		}
		if len(text) > contentLimit {
			text = text[:contentLimit] + "..."
		}
		if text != "" {
			fmt.Fprintf(&sb, "Description: %s\n", text)
		}
	}
	return sb.String()
}
