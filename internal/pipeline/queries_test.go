package pipeline

import (
	"reflect"
	"sort"
	"testing"

	"github.com/jobsai/jobsai/internal/score"
)

func TestBuildQueriesDeterministic(t *testing.T) {
	p := &score.Profile{
		CoreLanguages:  []string{"Python", "Go"},
		AgenticAI:      []string{"LangChain"},
		AIML:           []string{"PyTorch"},
		SearchKeywords: []string{"Backend Developer"},
	}
	a := BuildQueries(p)
	b := BuildQueries(p)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("not deterministic:\n%v\n%v", a, b)
	}
	if !sort.StringsAreSorted(a) {
		t.Fatalf("not sorted: %v", a)
	}
}

func TestBuildQueriesLanguageExpansion(t *testing.T) {
	p := &score.Profile{CoreLanguages: []string{"Python"}}
	got := toSet(BuildQueries(p))

	for _, want := range []string{"python developer", "junior python developer", "python engineer"} {
		if !got[want] {
			t.Errorf("missing %q", want)
		}
	}
}

func TestBuildQueriesAgenticTools(t *testing.T) {
	p := &score.Profile{AgenticAI: []string{"LangChain"}}
	got := toSet(BuildQueries(p))
	if !got["langchain"] || !got["langchain developer"] {
		t.Fatalf("agentic queries missing: %v", got)
	}
}

func TestBuildQueriesAIMLExtras(t *testing.T) {
	with := toSet(BuildQueries(&score.Profile{AIML: []string{"PyTorch"}}))
	without := toSet(BuildQueries(&score.Profile{}))

	if !with["machine learning engineer"] {
		t.Error("AI/ML extras missing when experience present")
	}
	if without["machine learning engineer"] {
		t.Error("AI/ML extras present without experience")
	}
}

func TestBuildQueriesFallbacksAlwaysPresent(t *testing.T) {
	got := toSet(BuildQueries(&score.Profile{}))
	for _, want := range fallbackQueries {
		if !got[want] {
			t.Errorf("missing fallback %q", want)
		}
	}
}

func TestBuildQueriesDeduplicates(t *testing.T) {
	p := &score.Profile{
		CoreLanguages:  []string{"Python", "python", " PYTHON "},
		SearchKeywords: []string{"python developer"},
	}
	queries := BuildQueries(p)
	seen := make(map[string]bool)
	for _, q := range queries {
		if seen[q] {
			t.Fatalf("duplicate query %q in %v", q, queries)
		}
		seen[q] = true
	}
}

func toSet(qs []string) map[string]bool {
	m := make(map[string]bool, len(qs))
	for _, q := range qs {
		m[q] = true
	}
	return m
}
