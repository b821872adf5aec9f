package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/jobsai/jobsai/internal/metrics"
)

// ErrCancelled is returned by Run when the cancellation check reports true at
// a loop boundary. In-flight fetches are allowed to complete first.
var ErrCancelled = errors.New("scrape: cancelled")

// Options tunes a scrape run.
type Options struct {
	MaxPages        int           // hard page cap per (source, query); default 10
	DeepMode        bool          // fetch each listing's detail page
	DeepConcurrency int           // bound on concurrent detail fetches; default 4
	PageInterval    time.Duration // pacing between pages of one source; default 800ms
	PerQueryLimit   int           // cap listings per (source, query); 0 = unlimited
}

func (o Options) withDefaults() Options {
	if o.MaxPages <= 0 {
		o.MaxPages = 10
	}
	if o.DeepConcurrency <= 0 {
		o.DeepConcurrency = 4
	}
	if o.PageInterval <= 0 {
		o.PageInterval = 800 * time.Millisecond
	}
	return o
}

// Result aggregates a scrape run across all sources and queries.
type Result struct {
	Listings    []RawListing
	Diagnostics []Diagnostic
}

// Scraper drives paginated extraction across multiple boards. Sources are
// independent: a board that fails persistently contributes a diagnostic, not
// an error, and the aggregate keeps whatever the other boards produced.
type Scraper struct {
	fetcher Fetcher
	boards  []Rules
	byName  map[string]Rules
	opts    Options
}

// New creates a scraper over the given boards.
func New(fetcher Fetcher, boards []Rules, opts Options) *Scraper {
	byName := make(map[string]Rules, len(boards))
	for _, b := range boards {
		byName[b.Name] = b
	}
	return &Scraper{fetcher: fetcher, boards: boards, byName: byName, opts: opts.withDefaults()}
}

// Run scrapes every (source, query) pair, deduplicates the aggregate and, in
// deep mode, enriches the surviving listings with full descriptions.
//
// cancelled is consulted at pagination and enrichment boundaries; pass nil
// when cancellation does not apply. Run returns ErrCancelled when it stopped
// early, and otherwise never fails: zero listings is a valid outcome.
func (s *Scraper) Run(ctx context.Context, queries []string, cancelled func() bool) (Result, error) {
	if cancelled == nil {
		cancelled = func() bool { return false }
	}

	var (
		mu    sync.Mutex
		all   []RawListing
		diags []Diagnostic
	)
	record := func(d Diagnostic) {
		mu.Lock()
		diags = append(diags, d)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, board := range s.boards {
		for _, query := range queries {
			g.Go(func() error {
				listings, err := s.scrapePair(gctx, board, query, cancelled, record)
				if err != nil {
					return err
				}
				mu.Lock()
				all = append(all, listings...)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
			return Result{}, ErrCancelled
		}
		return Result{}, err
	}

	deduped := Dedupe(all)
	slog.Info("scrape: aggregation complete",
		slog.Int("raw", len(all)),
		slog.Int("deduped", len(deduped)),
		slog.Int("sources", len(s.boards)),
		slog.Int("queries", len(queries)))

	if s.opts.DeepMode {
		if err := s.enrich(ctx, deduped, cancelled); err != nil {
			return Result{}, err
		}
	}

	return Result{Listings: deduped, Diagnostics: diags}, nil
}

// scrapePair paginates one (source, query) pair. Pagination stops on the
// first page with zero cards, on a short page (fewer cards than the board's
// threshold), or at the page cap. A page that fails to fetch twice is skipped
// — unless it is page 1, in which case the source has nothing to offer for
// this query and the loop gives up.
func (s *Scraper) scrapePair(ctx context.Context, board Rules, query string, cancelled func() bool, record func(Diagnostic)) ([]RawListing, error) {
	limiter := rate.NewLimiter(rate.Every(s.opts.PageInterval), 1)
	var collected []RawListing

	for page := 1; page <= s.opts.MaxPages; page++ {
		if cancelled() {
			return nil, ErrCancelled
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		pageURL := board.SearchURL(query, page)
		res, err := s.fetchOnceRetryOnce(ctx, pageURL, board.Headers)
		if err != nil {
			record(Diagnostic{Source: board.Name, Query: query, Page: page, Reason: err.Error()})
			slog.Warn("scrape: page failed after retry",
				slog.String("source", board.Name),
				slog.String("query", query),
				slog.Int("page", page),
				slog.Any("error", err))
			if page == 1 {
				return collected, nil
			}
			continue
		}

		cards := ParsePage(res.Body, board)
		if len(cards) == 0 {
			if page == 1 {
				record(Diagnostic{Source: board.Name, Query: query, Page: page, Reason: "no results"})
			}
			break
		}
		metrics.IncrListingsParsed(len(cards))

		for i := range cards {
			cards[i].Query = query
		}
		collected = append(collected, cards...)

		if s.opts.PerQueryLimit > 0 && len(collected) >= s.opts.PerQueryLimit {
			collected = collected[:s.opts.PerQueryLimit]
			break
		}
		// A short page means the board has no next page.
		if len(cards) < board.Threshold {
			break
		}
	}

	slog.Debug("scrape: pair complete",
		slog.String("source", board.Name),
		slog.String("query", query),
		slog.Int("listings", len(collected)))
	return collected, nil
}

// fetchOnceRetryOnce applies the scraper's page-level retry policy: one
// retry, with a longer pause when the board is rate limiting.
func (s *Scraper) fetchOnceRetryOnce(ctx context.Context, pageURL string, headers map[string]string) (*FetchResult, error) {
	res, err := s.fetcher.Fetch(ctx, pageURL, headers)
	if err == nil {
		return res, nil
	}

	wait := 500 * time.Millisecond
	var fe *FetchError
	if errors.As(err, &fe) && fe.StatusCode == 429 {
		wait = 2 * time.Second
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	res, err2 := s.fetcher.Fetch(ctx, pageURL, headers)
	if err2 != nil {
		return nil, fmt.Errorf("retry failed: %w", err2)
	}
	return res, nil
}

// enrich fetches each listing's detail page for its full description.
// Failures degrade the individual listing to its non-deep form.
func (s *Scraper) enrich(ctx context.Context, listings []RawListing, cancelled func() bool) error {
	sem := semaphore.NewWeighted(int64(s.opts.DeepConcurrency))
	var wg sync.WaitGroup

	for i := range listings {
		if cancelled() {
			wg.Wait()
			return ErrCancelled
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func(l *RawListing) {
			defer wg.Done()
			defer sem.Release(1)
			s.enrichOne(ctx, l)
		}(&listings[i])
	}
	wg.Wait()
	return nil
}

func (s *Scraper) enrichOne(ctx context.Context, l *RawListing) {
	board, ok := s.byName[l.Source]
	if !ok || len(board.DescriptionSelectors) == 0 {
		return
	}
	metrics.IncrDeepFetches()

	res, err := s.fetcher.Fetch(ctx, l.URL, board.Headers)
	if err != nil {
		slog.Debug("scrape: deep fetch failed",
			slog.String("source", l.Source),
			slog.String("url", l.URL),
			slog.Any("error", err))
		return
	}
	if desc, ok := ParseFullDescription(res.Body, board.DescriptionSelectors); ok {
		l.FullDescription = desc
	}
}
