// Package api exposes the job pipeline over HTTP: start, poll, cancel,
// artifact download, plus health and metrics endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jobsai/jobsai/internal/metrics"
	"github.com/jobsai/jobsai/internal/pipeline"
	"github.com/jobsai/jobsai/internal/ratelimit"
	"github.com/jobsai/jobsai/internal/store"
)

// Server wires the HTTP surface to the pipeline.
type Server struct {
	State   *pipeline.StateManager
	Runner  *pipeline.Runner
	Limiter *ratelimit.Limiter
	Store   store.Store
}

// Routes builds the mux. Method-qualified patterns give free 405s.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("GET /api/progress/{job_id}", s.handleProgress)
	mux.HandleFunc("POST /api/cancel/{job_id}", s.handleCancel)
	mux.HandleFunc("GET /api/download/{job_id}/{n}", s.handleDownload)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api: response encode failed", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(metrics.Format()))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
