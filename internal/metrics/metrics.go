// Package metrics tracks operational counters for the pipeline backend.
package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

var counters struct {
	JobsStarted    atomic.Int64
	JobsCompleted  atomic.Int64
	JobsErrored    atomic.Int64
	JobsCancelled  atomic.Int64
	PagesFetched   atomic.Int64
	FetchErrors    atomic.Int64
	ListingsParsed atomic.Int64
	DeepFetches    atomic.Int64
	LLMCalls       atomic.Int64
	LLMErrors      atomic.Int64
	RateLimitDenials atomic.Int64
	StoreErrors    atomic.Int64
}

func IncrJobsStarted()      { counters.JobsStarted.Add(1) }
func IncrJobsCompleted()    { counters.JobsCompleted.Add(1) }
func IncrJobsErrored()      { counters.JobsErrored.Add(1) }
func IncrJobsCancelled()    { counters.JobsCancelled.Add(1) }
func IncrPagesFetched()     { counters.PagesFetched.Add(1) }
func IncrFetchErrors()      { counters.FetchErrors.Add(1) }
func IncrListingsParsed(n int) { counters.ListingsParsed.Add(int64(n)) }
func IncrDeepFetches()      { counters.DeepFetches.Add(1) }
func IncrLLMCalls()         { counters.LLMCalls.Add(1) }
func IncrLLMErrors()        { counters.LLMErrors.Add(1) }
func IncrRateLimitDenials() { counters.RateLimitDenials.Add(1) }
func IncrStoreErrors()      { counters.StoreErrors.Add(1) }

// Get returns a snapshot of all counters.
func Get() map[string]int64 {
	return map[string]int64{
		"jobs_started":       counters.JobsStarted.Load(),
		"jobs_completed":     counters.JobsCompleted.Load(),
		"jobs_errored":       counters.JobsErrored.Load(),
		"jobs_cancelled":     counters.JobsCancelled.Load(),
		"pages_fetched":      counters.PagesFetched.Load(),
		"fetch_errors":       counters.FetchErrors.Load(),
		"listings_parsed":    counters.ListingsParsed.Load(),
		"deep_fetches":       counters.DeepFetches.Load(),
		"llm_calls":          counters.LLMCalls.Load(),
		"llm_errors":         counters.LLMErrors.Load(),
		"rate_limit_denials": counters.RateLimitDenials.Load(),
		"store_errors":       counters.StoreErrors.Load(),
	}
}

// Format returns counters as a simple text format for the /metrics endpoint.
func Format() string {
	m := Get()
	keys := []string{
		"jobs_started", "jobs_completed", "jobs_errored", "jobs_cancelled",
		"pages_fetched", "fetch_errors", "listings_parsed", "deep_fetches",
		"llm_calls", "llm_errors",
		"rate_limit_denials", "store_errors",
	}
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}
