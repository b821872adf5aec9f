// jobsai — job discovery pipeline backend.
//
// Given a candidate questionnaire, scrapes multiple job boards, scores the
// listings against an LLM-built skill profile and generates cover letters.
// Jobs run as cancellable background pipelines polled over HTTP.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"

	"github.com/jobsai/jobsai/internal/agents"
	"github.com/jobsai/jobsai/internal/api"
	"github.com/jobsai/jobsai/internal/pipeline"
	"github.com/jobsai/jobsai/internal/ratelimit"
	"github.com/jobsai/jobsai/internal/render"
	"github.com/jobsai/jobsai/internal/scrape"
	"github.com/jobsai/jobsai/internal/store"
)

var (
	version = "dev"
	port    = env.Str("PORT", "8080")
)

func main() {
	slog.Info("starting jobsai",
		slog.String("version", version),
		slog.String("port", port),
	)

	st := openStore()
	defer st.Close()

	server := &api.Server{
		State:   pipeline.NewStateManager(st),
		Runner:  newRunner(st),
		Limiter: ratelimit.New(st, env.Int("RATE_LIMIT", 5), env.Duration("RATE_WINDOW", time.Hour)),
		Store:   st,
	}

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	if err := httpServer.ListenAndServe(); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// openStore picks the state backend: redis when configured, sqlite for a
// local file, in-memory as the last resort.
func openStore() store.Store {
	if redisURL := env.Str("REDIS_URL", ""); redisURL != "" {
		s, err := store.OpenRedis(redisURL)
		if err == nil {
			slog.Info("store: redis initialized")
			return s
		}
		slog.Warn("store: redis init failed, falling back", slog.Any("error", err))
	}
	if path := env.Str("STATE_DB_PATH", ""); path != "" {
		s, err := store.OpenSQLite(path)
		if err == nil {
			slog.Info("store: sqlite initialized", slog.String("path", path))
			return s
		}
		slog.Warn("store: sqlite init failed, falling back", slog.Any("error", err))
	}
	slog.Warn("store: using in-memory state, records will not survive restarts")
	return store.NewMemory()
}

func newRunner(st store.Store) *pipeline.Runner {
	fetcher := scrape.NewHTTPFetcher(env.Duration("FETCH_TIMEOUT", 15*time.Second))
	if env.Int("BROWSER_FETCH", 1) != 0 {
		browser, err := scrape.NewBrowser(15)
		if err != nil {
			slog.Warn("browser client init failed, using plain http", slog.Any("error", err))
		} else {
			fetcher.Browser = browser
			slog.Info("browser client initialized")
		}
	}

	client := llm.NewClient(
		env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		env.Str("LLM_API_KEY", ""),
		env.Str("LLM_MODEL", "gemini-2.5-flash"),
		llm.WithFallbackKeys(env.List("LLM_API_KEY_FALLBACKS", "")),
		llm.WithMaxTokens(env.Int("LLM_MAX_TOKENS", 16384)),
		llm.WithTemperature(env.Float("LLM_TEMPERATURE", 0.3)),
		llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	)
	chat := &agents.Chat{
		Client:      client,
		Temperature: env.Float("LLM_TEMPERATURE", 0.3),
		MaxTokens:   env.Int("LLM_MAX_TOKENS", 16384),
	}

	return &pipeline.Runner{
		State:     pipeline.NewStateManager(st),
		Store:     st,
		Fetcher:   fetcher,
		Profiler:  &agents.Profiler{LLM: chat},
		Analyzer:  &agents.Analyzer{LLM: chat, TopN: env.Int("ANALYZE_TOP_N", 10)},
		Generator: &agents.Generator{LLM: chat},
		Renderer:  render.PlainText{},
		ScrapeOpts: scrape.Options{
			MaxPages:        env.Int("SCRAPE_MAX_PAGES", 10),
			DeepConcurrency: env.Int("SCRAPE_DEEP_CONCURRENCY", 4),
			PageInterval:    env.Duration("SCRAPE_PAGE_INTERVAL", 800*time.Millisecond),
			PerQueryLimit:   env.Int("SCRAPE_PER_QUERY_LIMIT", 0),
		},
	}
}
