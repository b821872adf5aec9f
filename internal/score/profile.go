// Package score ranks scraped job listings against a candidate profile.
// Scoring is a pure function of (listing, profile, now) — no network or
// storage — so it can be tested against literal fixtures.
package score

// Profile is the candidate's skill profile as produced by the profiling
// phase. Technologies carries the questionnaire's self-rated experience
// levels (0–7); a level of zero means the technology was shown to the
// candidate but not rated, and it does not participate in scoring.
type Profile struct {
	Name           string         `json:"name"`
	Technologies   map[string]int `json:"technologies"`
	Description    string         `json:"description"`
	CoreLanguages  []string       `json:"core_languages"`
	Frameworks     []string       `json:"frameworks_and_libraries"`
	Tools          []string       `json:"tools_and_platforms"`
	AgenticAI      []string       `json:"agentic_ai_experience"`
	AIML           []string       `json:"ai_ml_experience"`
	SoftSkills     []string       `json:"soft_skills"`
	Projects       []string       `json:"projects_mentioned"`
	SearchKeywords []string       `json:"job_search_keywords"`
}

// MaxLevel is the top of the questionnaire's experience slider.
const MaxLevel = 7
