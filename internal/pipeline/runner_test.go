package pipeline

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobsai/jobsai/internal/agents"
	"github.com/jobsai/jobsai/internal/render"
	"github.com/jobsai/jobsai/internal/scrape"
	"github.com/jobsai/jobsai/internal/store"
)

// fakeLLM returns a fixed completion and counts calls.
type fakeLLM struct {
	text  string
	hook  func()
	calls int32
}

func (f *fakeLLM) Complete(context.Context, string, string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.hook != nil {
		f.hook()
	}
	return f.text, nil
}

// fixedFetcher serves the same body for every URL.
type fixedFetcher struct {
	body []byte
}

func (f fixedFetcher) Fetch(context.Context, string, map[string]string) (*scrape.FetchResult, error) {
	return &scrape.FetchResult{StatusCode: 200, Body: f.body}, nil
}

// duunitoriPage is a minimal page matching the duunitori rule set.
const duunitoriPage = `<html><body>
<div class="grid-sandbox grid-sandbox--tight-bottom grid-sandbox--tight-top">
  <div class="grid grid--middle job-box job-box--lg">
    <h3 class="job-box__title">Python Developer</h3>
    <a class="job-box__hover gtm-search-result" data-company="Acme Oy" href="/tyopaikat/python-developer-1"></a>
    <span class="job-box__job-location">Helsinki</span>
  </div>
</div>
</body></html>`

const profileJSON = `{
	"name": "Testi Hakija",
	"technologies": {"Python": 5},
	"description": "Junior backend developer with Python experience.",
	"core_languages": ["python"]
}`

type runnerFixture struct {
	runner    *Runner
	state     *StateManager
	store     *store.Memory
	profiler  *fakeLLM
	analyzer  *fakeLLM
	generator *fakeLLM
}

func newRunnerFixture(t *testing.T, pageBody string) *runnerFixture {
	t.Helper()
	s := store.NewMemory()
	t.Cleanup(func() { s.Close() })

	f := &runnerFixture{
		store:     s,
		state:     NewStateManager(s),
		profiler:  &fakeLLM{text: profileJSON},
		analyzer:  &fakeLLM{text: "solid match analysis"},
		generator: &fakeLLM{text: `["Dear Acme, first letter.", "Dear Acme, second letter."]`},
	}
	f.runner = &Runner{
		State:     f.state,
		Store:     s,
		Fetcher:   fixedFetcher{body: []byte(pageBody)},
		Profiler:  &agents.Profiler{LLM: f.profiler},
		Analyzer:  &agents.Analyzer{LLM: f.analyzer},
		Generator: &agents.Generator{LLM: f.generator},
		Renderer:  render.PlainText{},
		ScrapeOpts: scrape.Options{
			MaxPages:     2,
			PageInterval: time.Millisecond,
		},
	}
	return f
}

func testPayload() CandidatePayload {
	return CandidatePayload{
		JobBoards:        []string{"duunitori"},
		CoverLetterNum:   2,
		CoverLetterStyle: "professional",
		Technologies:     map[string]int{"Python": 5},
		AdditionalInfo:   "Junior developer looking for backend work.",
	}
}

func TestRunnerHappyPath(t *testing.T) {
	f := newRunnerFixture(t, duunitoriPage)
	ctx := context.Background()

	_, err := f.state.Create(ctx, "job-1")
	require.NoError(t, err)
	f.runner.Run(ctx, "job-1", testPayload())

	rec, err := f.state.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, StatusComplete, rec.Status)
	require.Empty(t, rec.Phase)
	require.Empty(t, rec.Error)
	require.NotNil(t, rec.Result)
	require.Equal(t, 1, rec.Result.ListingsScored, "identical cards across queries must dedupe to one")
	require.Equal(t, "solid match analysis", rec.Result.Analysis)
	require.Len(t, rec.Result.Documents, 2)

	// Artifacts are retrievable under the doc namespace.
	data, err := f.store.Get(ctx, rec.Result.Documents[0].Key)
	require.NoError(t, err)
	require.Contains(t, string(data), "first letter")
	require.Equal(t, "cover_letter_1.txt", rec.Result.Documents[0].Filename)
}

func TestRunnerCancelDuringProfiling(t *testing.T) {
	f := newRunnerFixture(t, duunitoriPage)
	ctx := context.Background()

	_, err := f.state.Create(ctx, "job-1")
	require.NoError(t, err)

	// The cancel lands while profiling is in flight; the next phase boundary
	// must observe it.
	f.profiler.hook = func() {
		require.NoError(t, f.state.RequestCancel(ctx, "job-1"))
	}
	f.runner.Run(ctx, "job-1", testPayload())

	rec, err := f.state.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, rec.Status)
	require.Empty(t, rec.Phase)
	require.Zero(t, atomic.LoadInt32(&f.analyzer.calls), "analyzing must not start after cancellation")
	require.Zero(t, atomic.LoadInt32(&f.generator.calls))
}

func TestRunnerCancelBeforeStart(t *testing.T) {
	f := newRunnerFixture(t, duunitoriPage)
	ctx := context.Background()

	_, err := f.state.Create(ctx, "job-1")
	require.NoError(t, err)
	require.NoError(t, f.state.RequestCancel(ctx, "job-1"))

	f.runner.Run(ctx, "job-1", testPayload())

	rec, err := f.state.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, rec.Status)
	require.Zero(t, atomic.LoadInt32(&f.profiler.calls), "no phase work after pre-start cancel")
}

func TestRunnerNoListingsCompletesEmpty(t *testing.T) {
	f := newRunnerFixture(t, "<html><body><p>nothing here</p></body></html>")
	ctx := context.Background()

	_, err := f.state.Create(ctx, "job-1")
	require.NoError(t, err)
	f.runner.Run(ctx, "job-1", testPayload())

	rec, err := f.state.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, StatusComplete, rec.Status, "an empty search is a valid outcome, not an error")
	require.Empty(t, rec.Error)
	require.NotNil(t, rec.Result)
	require.Zero(t, rec.Result.ListingsScored)
	require.Empty(t, rec.Result.Documents)
	require.Empty(t, rec.Result.Analysis)
	require.Zero(t, atomic.LoadInt32(&f.analyzer.calls), "nothing to analyze")
	require.Zero(t, atomic.LoadInt32(&f.generator.calls), "nothing to write letters for")
}

func TestStoreDocumentsUsesRemainingTTL(t *testing.T) {
	f := newRunnerFixture(t, duunitoriPage)
	ctx := context.Background()

	rec, err := f.state.Create(ctx, "job-1")
	require.NoError(t, err)

	// Shrink the record's remaining lifetime; artifacts must expire with it,
	// not a full JobTTL after generation.
	rec.ExpiresAt = time.Now().Add(2 * time.Second).Unix()
	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, f.store.Put(ctx, store.JobKey("job-1"), raw, time.Hour))

	docs, err := f.runner.storeDocuments(ctx, "job-1", []string{"Dear Acme, hire me."})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	time.Sleep(2100 * time.Millisecond)
	_, err = f.store.Get(ctx, docs[0].Key)
	require.ErrorIs(t, err, store.ErrNotFound)

	// A record already past its horizon stores nothing at all.
	rec.ExpiresAt = time.Now().Add(-time.Second).Unix()
	raw, err = json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, f.store.Put(ctx, store.JobKey("job-1"), raw, time.Hour))
	_, err = f.runner.storeDocuments(ctx, "job-1", []string{"Dear Acme."})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunnerUnknownBoardFails(t *testing.T) {
	f := newRunnerFixture(t, duunitoriPage)
	ctx := context.Background()

	_, err := f.state.Create(ctx, "job-1")
	require.NoError(t, err)

	payload := testPayload()
	payload.JobBoards = []string{"monster"}
	f.runner.Run(ctx, "job-1", payload)

	rec, err := f.state.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, StatusError, rec.Status)
}

func TestPayloadValidate(t *testing.T) {
	p := testPayload()
	require.NoError(t, p.Validate())

	missing := testPayload()
	missing.AdditionalInfo = "   "
	require.Error(t, missing.Validate())

	badNum := testPayload()
	badNum.CoverLetterNum = 11
	require.Error(t, badNum.Validate())

	badLevel := testPayload()
	badLevel.Technologies = map[string]int{"Python": 9}
	require.Error(t, badLevel.Validate())
}
