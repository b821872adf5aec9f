package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobsai/jobsai/internal/agents"
	"github.com/jobsai/jobsai/internal/metrics"
	"github.com/jobsai/jobsai/internal/render"
	"github.com/jobsai/jobsai/internal/score"
	"github.com/jobsai/jobsai/internal/scrape"
	"github.com/jobsai/jobsai/internal/store"
)

// Runner executes one job end to end. The API fires it in a goroutine and
// never hears back; everything observable goes through the JobRecord.
type Runner struct {
	State     *StateManager
	Store     store.Store
	Fetcher   scrape.Fetcher
	Profiler  *agents.Profiler
	Analyzer  *agents.Analyzer
	Generator *agents.Generator
	Renderer  render.Renderer

	// ScrapeOpts is the base scrape configuration; DeepMode is overridden
	// per job from the payload.
	ScrapeOpts scrape.Options

	now func() time.Time
}

// clock returns the runner's time source, defaulting to time.Now.
func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// Run drives the job to a terminal status. It assumes the JobRecord already
// exists in status running / phase profiling.
func (r *Runner) Run(ctx context.Context, jobID string, payload CandidatePayload) {
	metrics.IncrJobsStarted()
	start := time.Now()

	err := r.run(ctx, jobID, payload)
	switch {
	case err == nil:
		metrics.IncrJobsCompleted()
		slog.Info("pipeline: job complete",
			slog.String("job_id", jobID),
			slog.Duration("elapsed", time.Since(start)))
	case errors.Is(err, ErrCancelled):
		metrics.IncrJobsCancelled()
		if cerr := r.State.Cancel(ctx, jobID); cerr != nil && !errors.Is(cerr, ErrTerminal) {
			slog.Error("pipeline: cancel write failed",
				slog.String("job_id", jobID), slog.Any("error", cerr))
		}
		slog.Info("pipeline: job cancelled", slog.String("job_id", jobID))
	default:
		metrics.IncrJobsErrored()
		slog.Error("pipeline: job failed",
			slog.String("job_id", jobID), slog.Any("error", err))
		if ferr := r.State.Fail(ctx, jobID, clientMessage(err)); ferr != nil && !errors.Is(ferr, ErrTerminal) {
			slog.Error("pipeline: error write failed",
				slog.String("job_id", jobID), slog.Any("error", ferr))
		}
	}
}

// phaseError tags a failure with the phase it happened in, so the client
// message names the phase without leaking internals.
type phaseError struct {
	phase Phase
	err   error
}

func (e *phaseError) Error() string { return fmt.Sprintf("%s: %v", e.phase, e.err) }
func (e *phaseError) Unwrap() error { return e.err }

// clientMessage maps an internal error to what the poll endpoint may expose.
func clientMessage(err error) string {
	var pe *phaseError
	if errors.As(err, &pe) {
		return fmt.Sprintf("%s phase failed", pe.phase)
	}
	return "job failed"
}

func (r *Runner) run(ctx context.Context, jobID string, payload CandidatePayload) error {
	cancelled := func() bool { return r.State.CancelRequested(ctx, jobID) }

	// Phase profiling is set by Create; no transition needed.
	if cancelled() {
		return ErrCancelled
	}
	profile, err := r.Profiler.Build(ctx, payload.Questionnaire())
	if err != nil {
		return &phaseError{PhaseProfiling, err}
	}
	if len(profile.Technologies) == 0 {
		// The model occasionally drops the ratings; the questionnaire's own
		// numbers are authoritative anyway.
		profile.Technologies = payload.Technologies
	}

	if err := r.advance(ctx, jobID, PhaseSearching, cancelled); err != nil {
		return err
	}
	queries := BuildQueries(profile)
	boards := scrape.SelectBoards(payload.JobBoards)
	if len(boards) == 0 {
		return &phaseError{PhaseSearching, errors.New("no known job boards selected")}
	}
	opts := r.ScrapeOpts
	opts.DeepMode = payload.DeepMode
	result, err := scrape.New(r.Fetcher, boards, opts).Run(ctx, queries, cancelled)
	if err != nil {
		if errors.Is(err, scrape.ErrCancelled) {
			return ErrCancelled
		}
		return &phaseError{PhaseSearching, err}
	}
	for _, d := range result.Diagnostics {
		slog.Warn("pipeline: scrape diagnostic",
			slog.String("job_id", jobID),
			slog.String("source", d.Source),
			slog.String("query", d.Query),
			slog.Int("page", d.Page),
			slog.String("reason", d.Reason))
	}
	if len(result.Listings) == 0 {
		// Zero results is a valid outcome: every source may have failed or
		// simply matched nothing. The job completes empty rather than erroring.
		slog.Info("pipeline: no listings found, completing empty",
			slog.String("job_id", jobID))
		return r.State.Complete(ctx, jobID, &Result{})
	}

	if err := r.advance(ctx, jobID, PhaseScoring, cancelled); err != nil {
		return err
	}
	ranked := score.Rank(result.Listings, *profile, r.clock())

	if err := r.advance(ctx, jobID, PhaseAnalyzing, cancelled); err != nil {
		return err
	}
	analysis, err := r.Analyzer.Analyze(ctx, profile, ranked)
	if err != nil {
		return &phaseError{PhaseAnalyzing, err}
	}

	if err := r.advance(ctx, jobID, PhaseGenerating, cancelled); err != nil {
		return err
	}
	letters, err := r.Generator.CoverLetters(ctx, profile, analysis, payload.CoverLetterStyle, payload.CoverLetterNum)
	if err != nil {
		return &phaseError{PhaseGenerating, err}
	}
	docs, err := r.storeDocuments(ctx, jobID, letters)
	if err != nil {
		return &phaseError{PhaseGenerating, err}
	}

	return r.State.Complete(ctx, jobID, &Result{
		Documents:      docs,
		ListingsScored: len(ranked),
		Analysis:       analysis,
	})
}

// advance is the phase boundary: observe the cancel flag, then transition.
func (r *Runner) advance(ctx context.Context, jobID string, phase Phase, cancelled func() bool) error {
	if cancelled() {
		return ErrCancelled
	}
	if err := r.State.SetPhase(ctx, jobID, phase); err != nil {
		if errors.Is(err, ErrCancelled) {
			return ErrCancelled
		}
		return &phaseError{phase, err}
	}
	return nil
}

// storeDocuments renders each letter and persists it under the job's doc
// namespace with the record's remaining TTL, so artifacts never outlive the
// record even after a long run.
func (r *Runner) storeDocuments(ctx context.Context, jobID string, letters []string) ([]Document, error) {
	rec, err := r.State.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	ttl := time.Until(time.Unix(rec.ExpiresAt, 0))
	if ttl <= 0 {
		return nil, store.ErrNotFound
	}
	docs := make([]Document, 0, len(letters))
	for i, letter := range letters {
		data, filename, _, err := r.Renderer.Render(letter, i+1)
		if err != nil {
			return nil, fmt.Errorf("render letter %d: %w", i+1, err)
		}
		key := store.DocKey(jobID, i+1)
		if err := r.Store.Put(ctx, key, data, ttl); err != nil {
			return nil, fmt.Errorf("store letter %d: %w", i+1, err)
		}
		docs = append(docs, Document{Key: key, Filename: filename})
	}
	return docs, nil
}
