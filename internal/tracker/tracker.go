// Package tracker orchestrates the review pipeline per project: ingesting
// reviews from the provider chain or an uploaded file, running batch
// analysis, and maintaining the project status machine
// (pending → processing → completed | error) with incremental progress
// counters that a polling client can watch.
package tracker

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reviewlens/reviews-cli/internal/analysis"
	"github.com/reviewlens/reviews-cli/internal/ingest"
	"github.com/reviewlens/reviews-cli/internal/merge"
	"github.com/reviewlens/reviews-cli/internal/model"
	"github.com/reviewlens/reviews-cli/internal/provider"
	"github.com/reviewlens/reviews-cli/internal/store"
)

// progressFlushEvery bounds write amplification during analysis: the
// analyzed counter is persisted once per this many completed items, plus a
// final flush.
const progressFlushEvery = 10

// ErrRunInProgress is returned when an ingest or analysis run is requested
// for a project that already has one active. One run per project at a time.
var ErrRunInProgress = eris.New("a run is already active for this project")

// ErrNoReviews is returned when the whole provider chain produced zero
// usable reviews for a location reference.
var ErrNoReviews = eris.New("no provider produced any reviews")

// IngestReport describes one completed ingest run.
type IngestReport struct {
	ProjectID   string         `json:"project_id"`
	ReviewCount int            `json:"review_count"`
	PerProvider map[string]int `json:"per_provider,omitempty"`
	Merged      int            `json:"merged"`
	Duplicates  int            `json:"duplicates"`
}

// AnalysisReport describes one completed analysis run. ReviewCount is the
// number of newly analyzed reviews; Skipped is the number dropped by the
// quality filter this run.
type AnalysisReport struct {
	ProjectID   string           `json:"project_id"`
	ReviewCount int              `json:"review_count"`
	Skipped     int              `json:"skipped"`
	Fallbacks   int              `json:"fallbacks"`
	Usage       model.TokenUsage `json:"usage"`
	Message     string           `json:"message,omitempty"`
}

// Progress is a point-in-time view of a project's pipeline state.
type Progress struct {
	ProjectID       string              `json:"project_id"`
	Status          model.ProjectStatus `json:"status"`
	TotalReviews    int                 `json:"total_reviews"`
	AnalyzedReviews int                 `json:"analyzed_reviews"`
	FilteredReviews int                 `json:"filtered_reviews"`
	PercentComplete float64             `json:"percent_complete"`
}

// Tracker drives the ingest and analysis pipeline for projects. Safe for
// concurrent use across projects; concurrent runs of the same project are
// rejected with ErrRunInProgress.
type Tracker struct {
	store     store.Store
	engine    *analysis.Engine
	providers []provider.Provider

	mu     sync.Mutex
	active map[string]struct{}

	// importFile is swapped in tests; defaults to ingest.ImportFile.
	importFile func(path string) ([]model.RawReview, error)
}

// New creates a tracker. Providers must be given in descending trust
// order; the merger keeps the first occurrence of duplicated text.
func New(st store.Store, engine *analysis.Engine, providers []provider.Provider) *Tracker {
	return &Tracker{
		store:      st,
		engine:     engine,
		providers:  providers,
		active:     map[string]struct{}{},
		importFile: ingest.ImportFile,
	}
}

func (t *Tracker) acquire(projectID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.active[projectID]; busy {
		return ErrRunInProgress
	}
	t.active[projectID] = struct{}{}
	return nil
}

func (t *Tracker) release(projectID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, projectID)
}

// Ingest fetches up to limit reviews for locationRef by walking the
// provider chain in trust order, merges and deduplicates the results, and
// persists them. The project moves to processing while the run is active
// and to completed on success; if every provider fails or returns nothing
// the project moves to error and ErrNoReviews is returned.
func (t *Tracker) Ingest(ctx context.Context, projectID, locationRef string, limit int) (*IngestReport, error) {
	if err := t.acquire(projectID); err != nil {
		return nil, err
	}
	defer t.release(projectID)

	proj, err := t.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, eris.Wrapf(err, "tracker: load project %s", projectID)
	}
	if err := t.store.UpdateProjectStatus(ctx, projectID, model.StatusProcessing); err != nil {
		return nil, eris.Wrap(err, "tracker: mark project processing")
	}

	sets, perProvider, fetched := t.fetchFromChain(ctx, locationRef, limit)

	mergedReviews := merge.Merge(sets)
	if len(mergedReviews) > limit && limit > 0 {
		mergedReviews = mergedReviews[:limit]
	}
	if len(mergedReviews) == 0 {
		t.setError(ctx, projectID)
		return nil, eris.Wrapf(ErrNoReviews, "location %q", locationRef)
	}

	persisted, err := t.store.InsertReviews(ctx, projectID, mergedReviews)
	if err != nil {
		t.setError(ctx, projectID)
		return nil, eris.Wrap(err, "tracker: persist reviews")
	}

	total := proj.TotalReviews + len(persisted)
	if err := t.store.UpdateProjectProgress(ctx, projectID, total, proj.AnalyzedReviews); err != nil {
		t.setError(ctx, projectID)
		return nil, eris.Wrap(err, "tracker: record review count")
	}
	if err := t.store.UpdateProjectStatus(ctx, projectID, model.StatusCompleted); err != nil {
		return nil, eris.Wrap(err, "tracker: mark project completed")
	}

	zap.L().Info("ingest complete",
		zap.String("project_id", projectID),
		zap.String("location", locationRef),
		zap.Int("fetched", fetched),
		zap.Int("persisted", len(persisted)),
	)

	return &IngestReport{
		ProjectID:   projectID,
		ReviewCount: len(persisted),
		PerProvider: perProvider,
		Merged:      len(mergedReviews),
		Duplicates:  fetched - len(mergedReviews),
	}, nil
}

// fetchFromChain walks the providers in order, asking each for the still
// missing remainder. Provider failures are logged and skipped; a missing
// credential just disables that provider.
func (t *Tracker) fetchFromChain(ctx context.Context, locationRef string, limit int) ([]merge.ProviderSet, map[string]int, int) {
	var sets []merge.ProviderSet
	perProvider := map[string]int{}
	fetched := 0

	for _, p := range t.providers {
		remaining := limit - fetched
		if limit > 0 && remaining <= 0 {
			break
		}

		res, err := p.Fetch(ctx, locationRef, remaining)
		switch {
		case provider.IsConfig(err):
			zap.L().Debug("provider not configured, skipping",
				zap.String("provider", p.Name()),
			)
			continue
		case provider.IsNoReviews(err):
			zap.L().Info("provider returned no reviews",
				zap.String("provider", p.Name()),
				zap.String("location", locationRef),
			)
			continue
		case err != nil:
			zap.L().Warn("provider failed, falling through",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}

		sets = append(sets, merge.ProviderSet{Provider: res.Provider, Reviews: res.Reviews})
		perProvider[res.Provider] = len(res.Reviews)
		fetched += len(res.Reviews)
	}
	return sets, perProvider, fetched
}

// ImportFile ingests reviews from a local CSV or XLSX file instead of the
// provider chain. Rows without text are dropped by the parser.
func (t *Tracker) ImportFile(ctx context.Context, projectID, path string) (*IngestReport, error) {
	if err := t.acquire(projectID); err != nil {
		return nil, err
	}
	defer t.release(projectID)

	proj, err := t.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, eris.Wrapf(err, "tracker: load project %s", projectID)
	}
	if err := t.store.UpdateProjectStatus(ctx, projectID, model.StatusProcessing); err != nil {
		return nil, eris.Wrap(err, "tracker: mark project processing")
	}

	raws, err := t.importFile(path)
	if err != nil {
		t.setError(ctx, projectID)
		return nil, eris.Wrapf(err, "tracker: import %s", path)
	}

	persisted, err := t.store.InsertReviews(ctx, projectID, raws)
	if err != nil {
		t.setError(ctx, projectID)
		return nil, eris.Wrap(err, "tracker: persist reviews")
	}

	total := proj.TotalReviews + len(persisted)
	if err := t.store.UpdateProjectProgress(ctx, projectID, total, proj.AnalyzedReviews); err != nil {
		t.setError(ctx, projectID)
		return nil, eris.Wrap(err, "tracker: record review count")
	}
	if err := t.store.UpdateProjectStatus(ctx, projectID, model.StatusCompleted); err != nil {
		return nil, eris.Wrap(err, "tracker: mark project completed")
	}

	zap.L().Info("file import complete",
		zap.String("project_id", projectID),
		zap.String("path", path),
		zap.Int("persisted", len(persisted)),
	)

	return &IngestReport{
		ProjectID:   projectID,
		ReviewCount: len(persisted),
		Merged:      len(persisted),
	}, nil
}

// RunAnalysis analyzes every review of the project that does not yet have
// an analysis. Re-running on a fully analyzed project is a no-op that
// reports zero without touching the model. Progress counters are flushed
// every few completed items so polling clients see movement.
func (t *Tracker) RunAnalysis(ctx context.Context, projectID string, mode analysis.Mode) (*AnalysisReport, error) {
	if err := t.acquire(projectID); err != nil {
		return nil, err
	}
	defer t.release(projectID)

	proj, err := t.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, eris.Wrapf(err, "tracker: load project %s", projectID)
	}

	pending, err := t.store.ReviewsWithoutAnalysis(ctx, projectID)
	if err != nil {
		return nil, eris.Wrap(err, "tracker: list unanalyzed reviews")
	}
	if len(pending) == 0 {
		return &AnalysisReport{
			ProjectID: projectID,
			Message:   "all reviews already analyzed",
		}, nil
	}

	if err := t.store.UpdateProjectStatus(ctx, projectID, model.StatusProcessing); err != nil {
		return nil, eris.Wrap(err, "tracker: mark project processing")
	}

	analyzable, skipped := ingest.Filter(pending)
	if len(analyzable) == 0 {
		if err := t.store.UpdateProjectStatus(ctx, projectID, model.StatusCompleted); err != nil {
			return nil, eris.Wrap(err, "tracker: mark project completed")
		}
		return &AnalysisReport{
			ProjectID: projectID,
			Skipped:   skipped,
			Message:   "all remaining reviews were filtered out by the quality filter",
		}, nil
	}

	items := make([]analysis.Item, 0, len(analyzable))
	for _, r := range analyzable {
		items = append(items, analysis.Item{ID: r.ID, Text: r.Text, Rating: r.Rating})
	}

	batch := t.engine.AnalyzeBatch(ctx, items, mode)

	analyzed := proj.AnalyzedReviews
	persisted := 0
	for _, res := range batch.Results {
		if _, err := t.store.InsertAnalysis(ctx, res.ID, res.Result); err != nil {
			zap.L().Warn("could not persist analysis, skipping review",
				zap.String("review_id", res.ID),
				zap.Error(err),
			)
			continue
		}
		analyzed++
		persisted++
		if persisted%progressFlushEvery == 0 {
			if err := t.store.UpdateProjectProgress(ctx, projectID, proj.TotalReviews, analyzed); err != nil {
				zap.L().Warn("progress flush failed", zap.Error(err))
			}
		}
	}

	if err := t.store.UpdateProjectProgress(ctx, projectID, proj.TotalReviews, analyzed); err != nil {
		t.setError(ctx, projectID)
		return nil, eris.Wrap(err, "tracker: record analyzed count")
	}
	if err := t.store.UpdateProjectStatus(ctx, projectID, model.StatusCompleted); err != nil {
		return nil, eris.Wrap(err, "tracker: mark project completed")
	}

	zap.L().Info("analysis run complete",
		zap.String("project_id", projectID),
		zap.String("mode", string(mode)),
		zap.Int("analyzed", persisted),
		zap.Int("skipped", skipped),
		zap.Int("fallbacks", batch.Fallbacks),
	)

	return &AnalysisReport{
		ProjectID:   projectID,
		ReviewCount: persisted,
		Skipped:     skipped,
		Fallbacks:   batch.Fallbacks,
		Usage:       batch.Usage,
	}, nil
}

// GetProgress returns the project's current pipeline state. FilteredReviews
// is the gap between total and analyzed counters, which after a completed
// run equals the number of reviews dropped by the quality filter.
func (t *Tracker) GetProgress(ctx context.Context, projectID string) (*Progress, error) {
	proj, err := t.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, eris.Wrapf(err, "tracker: load project %s", projectID)
	}

	percent := 0.0
	if proj.TotalReviews > 0 {
		percent = float64(proj.AnalyzedReviews) / float64(proj.TotalReviews) * 100
	}
	return &Progress{
		ProjectID:       proj.ID,
		Status:          proj.Status,
		TotalReviews:    proj.TotalReviews,
		AnalyzedReviews: proj.AnalyzedReviews,
		FilteredReviews: proj.TotalReviews - proj.AnalyzedReviews,
		PercentComplete: percent,
	}, nil
}

// setError moves the project to error status, logging rather than
// propagating a failure of the status write itself.
func (t *Tracker) setError(ctx context.Context, projectID string) {
	if err := t.store.UpdateProjectStatus(ctx, projectID, model.StatusError); err != nil {
		zap.L().Error("could not mark project as errored",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
	}
}
