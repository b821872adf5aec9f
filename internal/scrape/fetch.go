package scrape

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jobsai/jobsai/internal/metrics"
)

// FailKind classifies a fetch failure for caller-side policy.
type FailKind string

const (
	FailNetwork FailKind = "network_error"
	FailStatus  FailKind = "non_200"
	FailEmpty   FailKind = "empty_body"
)

// FetchError is a classified page-fetch failure. Non-200 responses keep the
// status code so pagination loops can treat 429 differently from 403.
type FetchError struct {
	Kind       FailKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FailStatus {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetchResult is a successful page fetch.
type FetchResult struct {
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
}

// Fetcher fetches a single page with a source-specific header profile.
// Implementations perform no retries; retry policy belongs to the caller.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string, headers map[string]string) (*FetchResult, error)
}

const maxBodyBytes = 4 << 20

// blockingIndicators are substrings that suggest the board served a bot wall
// instead of results. Their presence is logged for selector-drift debugging.
var blockingIndicators = []string{
	"captcha",
	"blocked",
	"access denied",
	"please enable javascript",
	"cloudflare",
	"verify you are human",
}

// HTTPFetcher fetches pages with a shared http.Client, optionally routing
// through a Browser (Chrome TLS fingerprint) when one is configured.
type HTTPFetcher struct {
	Client  *http.Client
	Browser *Browser // nil = plain client only
}

// NewHTTPFetcher creates a fetcher with a transport tuned for scraping.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("stopped after 10 redirects")
				}
				return nil
			},
		},
	}
}

// Fetch performs one GET and classifies the outcome. The structured debug
// event (length + preview) makes selector drift diagnosable after the fact
// without replaying the request.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string, headers map[string]string) (*FetchResult, error) {
	start := time.Now()
	metrics.IncrPagesFetched()

	var body []byte
	var status int
	var err error
	if f.Browser != nil {
		body, status, err = f.Browser.Do(ctx, http.MethodGet, pageURL, headers)
	} else {
		body, status, err = f.plainGet(ctx, pageURL, headers)
	}
	elapsed := time.Since(start)

	if err != nil {
		metrics.IncrFetchErrors()
		return nil, &FetchError{Kind: FailNetwork, URL: pageURL, Err: err}
	}

	emitFetchDiagnostic(pageURL, status, body, elapsed)

	if status != http.StatusOK {
		metrics.IncrFetchErrors()
		return nil, &FetchError{Kind: FailStatus, URL: pageURL, StatusCode: status}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		metrics.IncrFetchErrors()
		return nil, &FetchError{Kind: FailEmpty, URL: pageURL, StatusCode: status}
	}

	return &FetchResult{StatusCode: status, Body: body, Elapsed: elapsed}, nil
}

func (f *HTTPFetcher) plainGet(ctx context.Context, pageURL string, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, 0, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// readBody reads the response body, handling gzip decompression if needed.
func readBody(resp *http.Response) ([]byte, error) {
	r := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, maxBodyBytes))
}

func emitFetchDiagnostic(pageURL string, status int, body []byte, elapsed time.Duration) {
	preview := string(body)
	if len(preview) > 500 {
		preview = preview[:500]
	}
	attrs := []any{
		slog.String("url", pageURL),
		slog.Int("status", status),
		slog.Int("length", len(body)),
		slog.Duration("elapsed", elapsed),
		slog.String("preview", preview),
	}

	lower := strings.ToLower(string(body))
	var found []string
	for _, ind := range blockingIndicators {
		if strings.Contains(lower, ind) {
			found = append(found, ind)
		}
	}
	if len(found) > 0 {
		slog.Warn("fetch: possible blocking detected", append(attrs, slog.Any("indicators", found))...)
		return
	}
	slog.Debug("fetch: page fetched", attrs...)
}
