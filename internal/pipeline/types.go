// Package pipeline owns the background job lifecycle: the durable JobRecord
// state machine, the phase runner and the search query builder. One runner
// goroutine owns a job's record; polling reads it concurrently through the
// same store.
package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a job. Terminal statuses are final; no
// write may follow them.
type Status string

const (
	StatusRunning   Status = "running"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Phase is the pipeline step currently executing. Empty when the job is not
// running.
type Phase string

const (
	PhaseProfiling  Phase = "profiling"
	PhaseSearching  Phase = "searching"
	PhaseScoring    Phase = "scoring"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseGenerating Phase = "generating"
)

// phaseOrder fixes the only legal progression; phases advance one step at a
// time and never move backward.
var phaseOrder = map[Phase]int{
	PhaseProfiling:  0,
	PhaseSearching:  1,
	PhaseScoring:    2,
	PhaseAnalyzing:  3,
	PhaseGenerating: 4,
}

// Document references one stored artifact.
type Document struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
}

// Result is the payload of a completed job.
type Result struct {
	Documents      []Document `json:"documents"`
	ListingsScored int        `json:"listings_scored"`
	Analysis       string     `json:"analysis"`
}

// JobRecord is the durable state of one pipeline job.
type JobRecord struct {
	JobID           string  `json:"job_id"`
	Status          Status  `json:"status"`
	Phase           Phase   `json:"phase,omitempty"`
	Result          *Result `json:"result,omitempty"`
	Error           string  `json:"error,omitempty"`
	CancelRequested bool    `json:"cancel_requested"`
	CreatedAt       int64   `json:"created_at"`
	ExpiresAt       int64   `json:"expires_at"`
}

// Terminal reports whether the record has reached a final status.
func (r *JobRecord) Terminal() bool {
	return r.Status != StatusRunning
}

// CandidatePayload is the validated form submission that starts a job.
type CandidatePayload struct {
	JobLevel         []string       `json:"job_level,omitempty"`
	JobBoards        []string       `json:"job_boards"`
	DeepMode         bool           `json:"deep_mode"`
	CoverLetterNum   int            `json:"cover_letter_num"`
	CoverLetterStyle string         `json:"cover_letter_style"`
	Technologies     map[string]int `json:"technologies"`
	AdditionalInfo   string         `json:"additional_info"`
}

// Validate rejects payloads the pipeline cannot run.
func (p *CandidatePayload) Validate() error {
	if strings.TrimSpace(p.AdditionalInfo) == "" {
		return errors.New("additional_info is required")
	}
	if len(p.AdditionalInfo) > 3000 {
		return errors.New("additional_info exceeds 3000 characters")
	}
	if p.CoverLetterNum < 0 || p.CoverLetterNum > 10 {
		return errors.New("cover_letter_num must be between 0 and 10")
	}
	for tech, level := range p.Technologies {
		if level < 0 || level > 7 {
			return fmt.Errorf("experience level for %q must be between 0 and 7", tech)
		}
	}
	return nil
}

// Questionnaire renders the payload as plain text for the profiling prompt.
func (p *CandidatePayload) Questionnaire() string {
	var sb strings.Builder
	if len(p.JobLevel) > 0 {
		fmt.Fprintf(&sb, "Target job level: %s\n", strings.Join(p.JobLevel, ", "))
	}
	if len(p.Technologies) > 0 {
		sb.WriteString("Self-rated technology experience (0-7):\n")
		for _, tech := range sortedKeys(p.Technologies) {
			fmt.Fprintf(&sb, "- %s: %d\n", tech, p.Technologies[tech])
		}
	}
	fmt.Fprintf(&sb, "About the candidate:\n%s\n", strings.TrimSpace(p.AdditionalInfo))
	return sb.String()
}
