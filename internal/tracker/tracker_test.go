package tracker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewlens/reviews-cli/internal/analysis"
	"github.com/reviewlens/reviews-cli/internal/model"
	"github.com/reviewlens/reviews-cli/internal/provider"
	"github.com/reviewlens/reviews-cli/internal/resilience"
	"github.com/reviewlens/reviews-cli/internal/store"
	"github.com/reviewlens/reviews-cli/pkg/anthropic"
)

// countingLLM returns canned JSON and counts how often it was asked.
type countingLLM struct {
	mu    sync.Mutex
	calls int
}

const cannedAnalysis = `{
	"primary_category": "positive",
	"primary_confidence": 0.9,
	"secondary_categories": [],
	"themes": ["service"],
	"sentiment_score": 0.8,
	"key_phrases": [],
	"summary": "Customer is satisfied."
}`

func (c *countingLLM) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return &anthropic.MessageResponse{
		Model:   req.Model,
		Content: []anthropic.ContentBlock{{Type: "text", Text: cannedAnalysis}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func (c *countingLLM) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeSource is a scripted review provider. It records the limit it was
// asked for.
type fakeSource struct {
	name    string
	reviews []model.RawReview
	err     error

	calls      int
	lastLimit  int
	everCalled bool
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(_ context.Context, _ string, limit int) (*provider.FetchResult, error) {
	f.calls++
	f.lastLimit = limit
	f.everCalled = true
	if f.err != nil {
		return nil, f.err
	}
	return &provider.FetchResult{
		Provider:  f.name,
		Reviews:   f.reviews,
		Requested: limit,
		Achieved:  len(f.reviews),
	}, nil
}

func raw(text string) model.RawReview {
	return model.RawReview{Text: text, Rating: 4, Author: "Sam", Source: model.SourceStructuredAPI}
}

func newTestTracker(t *testing.T, providers ...provider.Provider) (*Tracker, store.Store, *countingLLM) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	llm := &countingLLM{}
	engine := analysis.NewEngine(llm, resilience.RetryConfig{MaxAttempts: 1})
	return New(st, engine, providers), st, llm
}

func createProject(t *testing.T, st store.Store) *model.Project {
	t.Helper()
	p, err := st.CreateProject(context.Background(), "P", "", "owner")
	require.NoError(t, err)
	return p
}

func TestIngestMergesProviderChain(t *testing.T) {
	first := &fakeSource{name: provider.NamePlaces, reviews: []model.RawReview{
		raw("tasted the almond croissant with a flat white at the window table"),
		raw("queue moved quickly and the cashier remembered my usual order"),
	}}
	second := &fakeSource{name: provider.NameScrapeJob, reviews: []model.RawReview{
		// Duplicate of the first provider's record, lower trust, dropped.
		raw("tasted the almond croissant with a flat white at the window table"),
		raw("parking outside is tight but the patio seating makes up for it"),
	}}

	tr, st, _ := newTestTracker(t, first, second)
	p := createProject(t, st)

	report, err := tr.Ingest(context.Background(), p.ID, "Blue Door Bakery", 10)
	require.NoError(t, err)

	assert.Equal(t, 3, report.ReviewCount)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 2, report.PerProvider[provider.NamePlaces])
	assert.Equal(t, 2, report.PerProvider[provider.NameScrapeJob])

	got, err := st.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, 3, got.TotalReviews)
	assert.Zero(t, got.AnalyzedReviews)
}

func TestIngestFallsThroughFailedProvider(t *testing.T) {
	broken := &fakeSource{name: provider.NamePlaces, err: &provider.UpstreamError{
		Provider: provider.NamePlaces, StatusCode: 503, Err: errors.New("unavailable"),
	}}
	unconfigured := &fakeSource{name: provider.NameScrapeJob, err: &provider.ConfigError{
		Provider: provider.NameScrapeJob,
	}}
	working := &fakeSource{name: provider.NameBrowser, reviews: []model.RawReview{
		raw("waited twenty minutes but the ramen broth was worth every second"),
	}}

	tr, st, _ := newTestTracker(t, broken, unconfigured, working)
	p := createProject(t, st)

	report, err := tr.Ingest(context.Background(), p.ID, "Noodle Bar", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ReviewCount)
	assert.True(t, broken.everCalled)
	assert.True(t, working.everCalled)
}

func TestIngestNoReviewsSetsErrorStatus(t *testing.T) {
	empty := &fakeSource{name: provider.NamePlaces, err: &provider.NoReviewsFoundError{
		Provider: provider.NamePlaces, Ref: "nowhere",
	}}

	tr, st, _ := newTestTracker(t, empty)
	p := createProject(t, st)

	_, err := tr.Ingest(context.Background(), p.ID, "nowhere", 5)
	assert.ErrorIs(t, err, ErrNoReviews)

	got, err := st.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, got.Status)
}

func TestIngestStopsChainOnceLimitReached(t *testing.T) {
	first := &fakeSource{name: provider.NamePlaces, reviews: []model.RawReview{
		raw("service at the counter was friendly and genuinely attentive today"),
		raw("the seasonal pumpkin latte tasted like actual pumpkin for once"),
	}}
	second := &fakeSource{name: provider.NameScrapeJob}

	tr, st, _ := newTestTracker(t, first, second)
	p := createProject(t, st)

	report, err := tr.Ingest(context.Background(), p.ID, "Cafe", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ReviewCount)
	assert.Equal(t, 2, first.lastLimit)
	assert.False(t, second.everCalled, "chain stops once the limit is met")
}

func TestImportFileCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviews.csv")
	content := "text,rating,author\n" +
		"delivery arrived cold and the driver could not find the entrance,2,Kim\n" +
		"absolutely loved the rebuilt patio and the new evening menu,5,Lee\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tr, st, _ := newTestTracker(t)
	p := createProject(t, st)

	report, err := tr.ImportFile(context.Background(), p.ID, path)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ReviewCount)

	got, err := st.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, 2, got.TotalReviews)
}

func TestImportFileFailureSetsErrorStatus(t *testing.T) {
	tr, st, _ := newTestTracker(t)
	p := createProject(t, st)

	_, err := tr.ImportFile(context.Background(), p.ID, filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)

	got, err := st.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, got.Status)
}

func TestRunAnalysisFiltersAndCounts(t *testing.T) {
	tr, st, llm := newTestTracker(t)
	p := createProject(t, st)
	ctx := context.Background()

	raws := []model.RawReview{
		raw("the new brunch menu finally has a decent vegetarian option"),
		raw("tables were sticky and nobody came by to refill water"),
		raw("ordering through the app saved us the usual weekend wait"),
		raw("ok"), // dropped by the quality filter
	}
	_, err := st.InsertReviews(ctx, p.ID, raws)
	require.NoError(t, err)
	require.NoError(t, st.UpdateProjectProgress(ctx, p.ID, 4, 0))

	report, err := tr.RunAnalysis(ctx, p.ID, analysis.ModeStandard)
	require.NoError(t, err)

	assert.Equal(t, 3, report.ReviewCount)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Fallbacks)
	assert.Equal(t, 3, llm.callCount())

	got, err := st.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, 4, got.TotalReviews)
	assert.Equal(t, 3, got.AnalyzedReviews)

	progress, err := tr.GetProgress(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.FilteredReviews)
	assert.InDelta(t, 75.0, progress.PercentComplete, 1e-9)
}

func TestRunAnalysisAlreadyAnalyzedIsNoop(t *testing.T) {
	tr, st, llm := newTestTracker(t)
	p := createProject(t, st)
	ctx := context.Background()

	_, err := st.InsertReviews(ctx, p.ID, []model.RawReview{
		raw("the barista recommended a pour-over and it was excellent"),
	})
	require.NoError(t, err)
	require.NoError(t, st.UpdateProjectProgress(ctx, p.ID, 1, 0))

	_, err = tr.RunAnalysis(ctx, p.ID, analysis.ModeStandard)
	require.NoError(t, err)
	callsAfterFirst := llm.callCount()
	require.Equal(t, 1, callsAfterFirst)

	report, err := tr.RunAnalysis(ctx, p.ID, analysis.ModeStandard)
	require.NoError(t, err)
	assert.Zero(t, report.ReviewCount)
	assert.Contains(t, report.Message, "already analyzed")
	assert.Equal(t, callsAfterFirst, llm.callCount(), "no model calls for an already analyzed project")
}

func TestRunAnalysisAllFilteredCompletes(t *testing.T) {
	tr, st, llm := newTestTracker(t)
	p := createProject(t, st)
	ctx := context.Background()

	_, err := st.InsertReviews(ctx, p.ID, []model.RawReview{raw("ok"), raw("bad")})
	require.NoError(t, err)

	report, err := tr.RunAnalysis(ctx, p.ID, analysis.ModeStandard)
	require.NoError(t, err)
	assert.Zero(t, report.ReviewCount)
	assert.Equal(t, 2, report.Skipped)
	assert.Contains(t, report.Message, "filtered out")
	assert.Zero(t, llm.callCount())

	got, err := st.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
}

func TestConcurrentRunsRejected(t *testing.T) {
	tr, st, _ := newTestTracker(t)
	p := createProject(t, st)

	require.NoError(t, tr.acquire(p.ID))
	defer tr.release(p.ID)

	_, err := tr.Ingest(context.Background(), p.ID, "anywhere", 5)
	assert.ErrorIs(t, err, ErrRunInProgress)

	_, err = tr.RunAnalysis(context.Background(), p.ID, analysis.ModeFast)
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestGetProgressUnknownProject(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	_, err := tr.GetProgress(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIngestUnknownProject(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	_, err := tr.Ingest(context.Background(), "missing", "anywhere", 5)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
