package pipeline

import (
	"sort"
	"strings"

	"github.com/jobsai/jobsai/internal/score"
)

// fallbackQueries are always searched, regardless of profile content, so an
// empty or junior profile still yields a useful run.
var fallbackQueries = []string{
	"junior software developer",
	"junior full stack developer",
	"entry level developer",
	"llm engineer",
	"agentic ai",
}

// aiMLQueries are added when the profile shows any AI/ML experience.
var aiMLQueries = []string{
	"ai engineer",
	"junior ai engineer",
	"machine learning engineer",
	"ml engineer",
}

// BuildQueries derives board search queries from the profile. The output is
// deterministic (sorted, unique) so the same profile always scrapes the same
// pages.
func BuildQueries(p *score.Profile) []string {
	set := make(map[string]struct{})
	add := func(q string) {
		q = strings.ToLower(strings.TrimSpace(q))
		if q != "" {
			set[q] = struct{}{}
		}
	}

	for _, lang := range p.CoreLanguages {
		l := strings.ToLower(strings.TrimSpace(lang))
		if l == "" {
			continue
		}
		add(l + " developer")
		add("junior " + l + " developer")
		add(l + " engineer")
	}

	for _, tool := range p.AgenticAI {
		t := strings.ToLower(strings.TrimSpace(tool))
		if t == "" {
			continue
		}
		add(t)
		add(t + " developer")
	}

	if len(p.AIML) > 0 {
		for _, q := range aiMLQueries {
			add(q)
		}
	}

	for _, kw := range p.SearchKeywords {
		add(kw)
	}

	for _, q := range fallbackQueries {
		add(q)
	}

	out := make([]string, 0, len(set))
	for q := range set {
		out = append(out, q)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
