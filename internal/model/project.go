package model

import "time"

// ProjectStatus tracks where a project is in the ingest/analysis lifecycle.
// Transitions are driven exclusively by the tracker:
// pending → processing → completed | error.
type ProjectStatus string

const (
	StatusPending    ProjectStatus = "pending"
	StatusProcessing ProjectStatus = "processing"
	StatusCompleted  ProjectStatus = "completed"
	StatusError      ProjectStatus = "error"
)

// Project groups reviews and their analyses for one review source.
// Invariant: AnalyzedReviews <= TotalReviews. TotalReviews is set once at
// ingestion and never revised downward; the gap between the two counters
// after a completed run is the number of reviews dropped by the quality
// filter.
type Project struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	Owner           string        `json:"owner"`
	TotalReviews    int           `json:"total_reviews"`
	AnalyzedReviews int           `json:"analyzed_reviews"`
	Status          ProjectStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ProjectSummary aggregates analysis results for dashboard consumption.
type ProjectSummary struct {
	ProjectID         string         `json:"project_id"`
	TotalReviews      int            `json:"total_reviews"`
	AnalyzedReviews   int            `json:"analyzed_reviews"`
	SentimentCounts   map[string]int `json:"sentiment_counts"`
	AverageSentiment  float64        `json:"average_sentiment"`
	AverageConfidence float64        `json:"average_confidence"`
	TopThemes         []ThemeCount   `json:"top_themes"`
}

// ThemeCount pairs a theme with its occurrence count.
type ThemeCount struct {
	Theme string `json:"theme"`
	Count int    `json:"count"`
}
