package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jobsai/jobsai/internal/score"
	"github.com/jobsai/jobsai/internal/scrape"
)

// fakeCompleter replays scripted responses and records prompts.
type fakeCompleter struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	i := len(f.prompts) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i >= len(f.responses) {
		return "", errors.New("no scripted response")
	}
	return f.responses[i], nil
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		`{"a":1}`:                 `{"a":1}`,
		"  plain text  ":          "plain text",
	}
	for in, want := range cases {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProfilerBuild(t *testing.T) {
	f := &fakeCompleter{responses: []string{"```json\n" + `{
		"name": "Testi Hakija",
		"technologies": {"Python": 5, "Go": 1},
		"description": "Junior backend developer.",
		"job_search_keywords": ["python developer"]
	}` + "\n```"}}

	p := &Profiler{LLM: f}
	profile, err := p.Build(context.Background(), "answers here")
	if err != nil {
		t.Fatal(err)
	}
	if profile.Name != "Testi Hakija" {
		t.Errorf("name = %q", profile.Name)
	}
	if profile.Technologies["Python"] != 5 {
		t.Errorf("technologies = %v", profile.Technologies)
	}
	if !strings.Contains(f.prompts[0], "answers here") {
		t.Error("questionnaire missing from prompt")
	}
}

func TestProfilerRetriesMalformedJSON(t *testing.T) {
	f := &fakeCompleter{responses: []string{
		"not json at all",
		`{"name": "Second Try", "technologies": {}}`,
	}}

	p := &Profiler{LLM: f}
	profile, err := p.Build(context.Background(), "answers")
	if err != nil {
		t.Fatal(err)
	}
	if profile.Name != "Second Try" {
		t.Errorf("name = %q", profile.Name)
	}
	if len(f.prompts) != 2 {
		t.Errorf("model called %d times, want 2", len(f.prompts))
	}
}

func TestProfilerCompletionErrorIsPermanent(t *testing.T) {
	f := &fakeCompleter{errs: []error{errors.New("upstream down")}}

	p := &Profiler{LLM: f}
	if _, err := p.Build(context.Background(), "answers"); err == nil {
		t.Fatal("expected error")
	}
	if len(f.prompts) != 1 {
		t.Errorf("model called %d times, want 1 (no retry on transport error)", len(f.prompts))
	}
}

func rankedFixture(n int) []score.ScoredListing {
	out := make([]score.ScoredListing, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, score.ScoredListing{
			RawListing: scrape.RawListing{
				Title:   "Job " + string(rune('A'+i)),
				Company: "Acme",
				Snippet: "snippet",
			},
			Score: float64(100 - i),
		})
	}
	return out
}

func TestAnalyzerSendsTopN(t *testing.T) {
	f := &fakeCompleter{responses: []string{"useful analysis"}}
	a := &Analyzer{LLM: f, TopN: 2}

	got, err := a.Analyze(context.Background(), &score.Profile{Name: "X"}, rankedFixture(5))
	if err != nil {
		t.Fatal(err)
	}
	if got != "useful analysis" {
		t.Fatalf("analysis = %q", got)
	}
	prompt := f.prompts[0]
	if !strings.Contains(prompt, "Job A") || !strings.Contains(prompt, "Job B") {
		t.Error("top listings missing from prompt")
	}
	if strings.Contains(prompt, "Job C") {
		t.Error("listing beyond TopN leaked into prompt")
	}
}

func TestAnalyzerEmptyInput(t *testing.T) {
	a := &Analyzer{LLM: &fakeCompleter{}}
	if _, err := a.Analyze(context.Background(), &score.Profile{}, nil); err == nil {
		t.Fatal("expected error for empty listings")
	}
}

func TestGeneratorCoverLetters(t *testing.T) {
	f := &fakeCompleter{responses: []string{`["Dear Acme, letter one.", "Dear Beta, letter two."]`}}
	g := &Generator{LLM: f}

	letters, err := g.CoverLetters(context.Background(), &score.Profile{}, "analysis text", "enthusiastic", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(letters) != 2 {
		t.Fatalf("got %d letters, want 2", len(letters))
	}
	if !strings.Contains(f.prompts[0], "enthusiastic") {
		t.Error("style missing from prompt")
	}
	if !strings.Contains(f.prompts[0], "analysis text") {
		t.Error("analysis missing from prompt")
	}
}

func TestGeneratorClampsCount(t *testing.T) {
	f := &fakeCompleter{responses: []string{`["a","b","c","d","e","f","g","h","i","j","k","l"]`}}
	g := &Generator{LLM: f}

	letters, err := g.CoverLetters(context.Background(), &score.Profile{}, "analysis", "", 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(letters) != maxCoverLetters {
		t.Fatalf("got %d letters, want %d", len(letters), maxCoverLetters)
	}
}

func TestGeneratorHonorsFullRange(t *testing.T) {
	f := &fakeCompleter{responses: []string{`["a","b","c","d","e","f","g"]`}}
	g := &Generator{LLM: f}

	letters, err := g.CoverLetters(context.Background(), &score.Profile{}, "analysis", "", 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(letters) != 7 {
		t.Fatalf("got %d letters, want 7", len(letters))
	}
}
