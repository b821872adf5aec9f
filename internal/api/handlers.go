package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jobsai/jobsai/internal/pipeline"
	"github.com/jobsai/jobsai/internal/ratelimit"
	"github.com/jobsai/jobsai/internal/store"
)

const maxPayloadBytes = 64 << 10

// handleStart admits the request, creates the job record and fires the runner
// in the background. The response never waits for any pipeline work.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	client := ratelimit.ClientIP(r)
	if d := s.Limiter.Admit(r.Context(), client); !d.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds())))
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var payload pipeline.CandidatePayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err := dec.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := payload.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID := uuid.NewString()
	if _, err := s.State.Create(r.Context(), jobID); err != nil {
		slog.Error("api: job create failed", slog.String("job_id", jobID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "could not create job")
		return
	}

	// Fire and forget: the job must outlive this request.
	go s.Runner.Run(context.Background(), jobID, payload)

	slog.Info("api: job started", slog.String("job_id", jobID), slog.String("client", client))
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// progressResponse is the poll payload; absent fields are omitted so clients
// see exactly one of result/error, matching the record invariant.
type progressResponse struct {
	JobID  string           `json:"job_id"`
	Status pipeline.Status  `json:"status"`
	Phase  pipeline.Phase   `json:"phase,omitempty"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	rec, err := s.State.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		slog.Error("api: progress read failed", slog.String("job_id", jobID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "could not read job")
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{
		JobID:  rec.JobID,
		Status: rec.Status,
		Phase:  rec.Phase,
		Result: rec.Result,
		Error:  rec.Error,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if err := s.State.RequestCancel(r.Context(), jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		slog.Error("api: cancel failed", slog.String("job_id", jobID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "could not cancel job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancel_requested"})
}

// handleDownload serves one stored artifact of a completed job.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "invalid document number")
		return
	}

	rec, err := s.State.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not read job")
		return
	}
	if rec.Status != pipeline.StatusComplete || rec.Result == nil {
		writeError(w, http.StatusConflict, "job has no documents")
		return
	}

	key := store.DocKey(jobID, n)
	var filename string
	for _, d := range rec.Result.Documents {
		if d.Key == key {
			filename = d.Filename
			break
		}
	}
	if filename == "" {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	data, err := s.Store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document expired")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not read document")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}
