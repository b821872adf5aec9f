package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobsai/jobsai/internal/store"
)

// JobTTL is how long a record (and its artifacts) outlives its creation.
// Expiry is the only way records disappear; clients cannot delete them.
const JobTTL = time.Hour

var (
	// ErrTerminal rejects writes to a record in a final status.
	ErrTerminal = errors.New("pipeline: job already terminal")

	// ErrPhaseOrder rejects phase transitions that skip or rewind.
	ErrPhaseOrder = errors.New("pipeline: phase out of order")

	// ErrCancelled signals that the runner observed a cancellation request.
	ErrCancelled = errors.New("pipeline: job cancelled")
)

// StateManager persists JobRecords through the shared store. Only the runner
// goroutine that owns a job writes phase transitions; RequestCancel is the one
// mutation available to other callers, and it only ever flips a boolean
// false→true.
type StateManager struct {
	store store.Store
	now   func() time.Time
}

// NewStateManager creates a manager over the given store.
func NewStateManager(s store.Store) *StateManager {
	return &StateManager{store: s, now: time.Now}
}

// Create writes the initial record: running, profiling, fresh expiry. The
// write is conditional so a job ID can never be reused while a record exists.
func (m *StateManager) Create(ctx context.Context, jobID string) (*JobRecord, error) {
	now := m.now()
	rec := &JobRecord{
		JobID:     jobID,
		Status:    StatusRunning,
		Phase:     PhaseProfiling,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(JobTTL).Unix(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if err := m.store.Create(ctx, store.JobKey(jobID), raw, JobTTL); err != nil {
		return nil, fmt.Errorf("create job %s: %w", jobID, err)
	}
	slog.Info("pipeline: job created", slog.String("job_id", jobID))
	return rec, nil
}

// Get loads a record. Expired or unknown jobs return store.ErrNotFound.
func (m *StateManager) Get(ctx context.Context, jobID string) (*JobRecord, error) {
	raw, err := m.store.Get(ctx, store.JobKey(jobID))
	if err != nil {
		return nil, err
	}
	var rec JobRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("job %s: corrupt record: %w", jobID, err)
	}
	return &rec, nil
}

// save writes the record back with its remaining TTL, so updates never extend
// the expiry horizon set at creation.
func (m *StateManager) save(ctx context.Context, rec *JobRecord) error {
	ttl := time.Until(time.Unix(rec.ExpiresAt, 0))
	if ttl <= 0 {
		return store.ErrNotFound
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return m.store.Put(ctx, store.JobKey(rec.JobID), raw, ttl)
}

// SetPhase advances the record to the next phase. Transitions are rejected on
// terminal records, after a cancellation request, and when the target phase is
// not the immediate successor of the current one.
func (m *StateManager) SetPhase(ctx context.Context, jobID string, phase Phase) error {
	rec, err := m.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if rec.Terminal() {
		return ErrTerminal
	}
	if rec.CancelRequested {
		return ErrCancelled
	}
	cur, ok := phaseOrder[rec.Phase]
	next, ok2 := phaseOrder[phase]
	if !ok || !ok2 || next != cur+1 {
		return fmt.Errorf("%w: %s -> %s", ErrPhaseOrder, rec.Phase, phase)
	}
	rec.Phase = phase
	if err := m.save(ctx, rec); err != nil {
		return err
	}
	slog.Info("pipeline: phase", slog.String("job_id", jobID), slog.String("phase", string(phase)))
	return nil
}

// Complete finalizes the job with its result payload.
func (m *StateManager) Complete(ctx context.Context, jobID string, result *Result) error {
	return m.finalize(ctx, jobID, func(rec *JobRecord) {
		rec.Status = StatusComplete
		rec.Result = result
	})
}

// Fail finalizes the job with a client-safe error message.
func (m *StateManager) Fail(ctx context.Context, jobID, message string) error {
	return m.finalize(ctx, jobID, func(rec *JobRecord) {
		rec.Status = StatusError
		rec.Error = message
	})
}

// Cancel finalizes the job as cancelled. Called by the runner once it
// observes the cancellation flag, never directly by the API.
func (m *StateManager) Cancel(ctx context.Context, jobID string) error {
	return m.finalize(ctx, jobID, func(rec *JobRecord) {
		rec.Status = StatusCancelled
	})
}

func (m *StateManager) finalize(ctx context.Context, jobID string, mutate func(*JobRecord)) error {
	rec, err := m.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if rec.Terminal() {
		return ErrTerminal
	}
	rec.Phase = ""
	mutate(rec)
	if err := m.save(ctx, rec); err != nil {
		return err
	}
	slog.Info("pipeline: job finished",
		slog.String("job_id", jobID),
		slog.String("status", string(rec.Status)))
	return nil
}

// RequestCancel flips the cancellation flag. On a terminal record it is an
// acknowledged no-op; the terminal status is never disturbed.
func (m *StateManager) RequestCancel(ctx context.Context, jobID string) error {
	rec, err := m.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if rec.Terminal() || rec.CancelRequested {
		return nil
	}
	rec.CancelRequested = true
	if err := m.save(ctx, rec); err != nil {
		return err
	}
	slog.Info("pipeline: cancel requested", slog.String("job_id", jobID))
	return nil
}

// CancelRequested reads the cancellation flag. Store trouble reads as "not
// cancelled": the runner keeps going rather than aborting work on a blip.
func (m *StateManager) CancelRequested(ctx context.Context, jobID string) bool {
	rec, err := m.Get(ctx, jobID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("pipeline: cancel flag read failed",
				slog.String("job_id", jobID), slog.Any("error", err))
		}
		return false
	}
	return rec.CancelRequested
}
