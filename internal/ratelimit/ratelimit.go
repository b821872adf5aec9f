// Package ratelimit implements a fixed-window request limiter keyed by client
// IP and backed by the shared state store. The limiter protects the expensive
// pipeline start path; storage trouble fails open, because refusing all
// traffic when the store blips is worse than briefly not limiting it.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jobsai/jobsai/internal/metrics"
	"github.com/jobsai/jobsai/internal/store"
)

// Record is the persisted per-client counter. Windows are epoch-aligned so
// every instance computes the same window boundaries without coordination.
type Record struct {
	Count       int   `json:"count"`
	WindowStart int64 `json:"window_start"`
	ExpiresAt   int64 `json:"expires_at"`
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter admits up to Limit requests per client per Window.
type Limiter struct {
	store  store.Store
	limit  int
	window time.Duration

	now func() time.Time
}

const recordGrace = 5 * time.Minute

// New creates a limiter over the given store.
func New(s store.Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: s, limit: limit, window: window, now: time.Now}
}

// Admit checks and counts one request from the client. The counter update is
// read-modify-write: under concurrent requests a client can squeeze in a
// couple of extras, which is acceptable for an abuse brake.
func (l *Limiter) Admit(ctx context.Context, client string) Decision {
	now := l.now().Unix()
	windowSec := int64(l.window / time.Second)
	windowStart := now - now%windowSec
	key := store.RateLimitKey(client)

	rec := Record{Count: 0, WindowStart: windowStart}
	raw, err := l.store.Get(ctx, key)
	switch {
	case err == nil:
		if uerr := json.Unmarshal(raw, &rec); uerr != nil {
			slog.Warn("ratelimit: corrupt record, resetting",
				slog.String("client", client), slog.Any("error", uerr))
			rec = Record{Count: 0, WindowStart: windowStart}
		}
	case errors.Is(err, store.ErrNotFound):
		// first request in this window
	default:
		metrics.IncrStoreErrors()
		slog.Warn("ratelimit: store read failed, failing open",
			slog.String("client", client), slog.Any("error", err))
		return Decision{Allowed: true, Remaining: l.limit}
	}

	if rec.WindowStart != windowStart {
		rec = Record{Count: 0, WindowStart: windowStart}
	}

	if rec.Count >= l.limit {
		metrics.IncrRateLimitDenials()
		retry := time.Duration(windowStart+windowSec-now) * time.Second
		slog.Info("ratelimit: denied",
			slog.String("client", client),
			slog.Int("count", rec.Count),
			slog.Duration("retry_after", retry))
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}
	}

	rec.Count++
	rec.ExpiresAt = windowStart + windowSec + int64(recordGrace/time.Second)
	raw, err = json.Marshal(rec)
	if err == nil {
		err = l.store.Put(ctx, key, raw, l.window+recordGrace)
	}
	if err != nil {
		metrics.IncrStoreErrors()
		slog.Warn("ratelimit: store write failed, failing open",
			slog.String("client", client), slog.Any("error", err))
		return Decision{Allowed: true, Remaining: l.limit - rec.Count}
	}

	return Decision{Allowed: true, Remaining: l.limit - rec.Count}
}

// ClientIP extracts the caller's address for rate-limit keying. Behind a
// proxy the leftmost X-Forwarded-For entry is the original client.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		return rip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
