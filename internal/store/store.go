// Package store is the persistence gateway for projects, reviews and their
// analyses. Two backends exist: PostgreSQL via pgxpool for deployments, and
// SQLite for local single-binary use. Core pipeline code depends only on
// the Store interface.
package store

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/reviewlens/reviews-cli/internal/model"
)

// ErrNotFound is returned when a requested project or review does not exist.
var ErrNotFound = eris.New("not found")

// ProjectFilter specifies criteria for listing projects.
type ProjectFilter struct {
	Status model.ProjectStatus `json:"status,omitempty"`
	Owner  string              `json:"owner,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// Store defines the persistence contract for the review pipeline.
type Store interface {
	// Projects. Deleting a project cascades to its reviews and analyses.
	CreateProject(ctx context.Context, name, description, owner string) (*model.Project, error)
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
	UpdateProjectStatus(ctx context.Context, projectID string, status model.ProjectStatus) error
	UpdateProjectProgress(ctx context.Context, projectID string, totalReviews, analyzedReviews int) error

	// Reviews. InsertReviews drops records with empty text and returns the
	// persisted rows.
	InsertReviews(ctx context.Context, projectID string, reviews []model.RawReview) ([]model.Review, error)
	ListReviews(ctx context.Context, projectID string) ([]model.Review, error)
	ReviewsWithoutAnalysis(ctx context.Context, projectID string) ([]model.Review, error)

	// Analyses. A review holds at most one analysis; inserting a second one
	// for the same review is a silent no-op.
	InsertAnalysis(ctx context.Context, reviewID string, result model.ReviewAnalysisResult) (*model.ReviewAnalysis, error)
	RecentAnalyses(ctx context.Context, projectID string, limit int) ([]model.ReviewAnalysis, error)
	ProjectSummary(ctx context.Context, projectID string) (*model.ProjectSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// summaryRow is one analysis row as needed by summary aggregation.
type summaryRow struct {
	category   string
	confidence float64
	sentiment  float64
	themes     []string
}

// buildSummary aggregates analysis rows into a ProjectSummary. Shared by
// both backends so they report identical numbers.
func buildSummary(project *model.Project, rows []summaryRow) *model.ProjectSummary {
	summary := &model.ProjectSummary{
		ProjectID:       project.ID,
		TotalReviews:    project.TotalReviews,
		AnalyzedReviews: project.AnalyzedReviews,
		SentimentCounts: map[string]int{},
	}
	if len(rows) == 0 {
		return summary
	}

	var sentimentSum, confidenceSum float64
	themeCounts := map[string]int{}
	for _, r := range rows {
		summary.SentimentCounts[r.category]++
		sentimentSum += r.sentiment
		confidenceSum += r.confidence
		for _, theme := range r.themes {
			themeCounts[theme]++
		}
	}
	summary.AverageSentiment = sentimentSum / float64(len(rows))
	summary.AverageConfidence = confidenceSum / float64(len(rows))
	summary.TopThemes = topThemes(themeCounts, 10)
	return summary
}

func topThemes(counts map[string]int, limit int) []model.ThemeCount {
	themes := make([]model.ThemeCount, 0, len(counts))
	for theme, count := range counts {
		themes = append(themes, model.ThemeCount{Theme: theme, Count: count})
	}
	// Count descending, then alphabetical for stable output.
	sort.Slice(themes, func(i, j int) bool {
		if themes[i].Count != themes[j].Count {
			return themes[i].Count > themes[j].Count
		}
		return themes[i].Theme < themes[j].Theme
	})
	if len(themes) > limit {
		themes = themes[:limit]
	}
	return themes
}
