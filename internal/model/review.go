package model

import "time"

// ReviewSource identifies where a raw review came from.
type ReviewSource string

const (
	SourceCSV           ReviewSource = "csv"
	SourceStructuredAPI ReviewSource = "structured_api"
	SourcePaidScrape    ReviewSource = "paid_scrape"
	SourceBrowserScrape ReviewSource = "browser_scrape"
)

// RawReview is a review as produced by a source provider or file parser,
// before persistence. Text must be non-empty for the record to be kept.
type RawReview struct {
	Text       string       `json:"text"`
	Rating     int          `json:"rating"`
	Author     string       `json:"author"`
	OccurredOn time.Time    `json:"occurred_on"`
	Source     ReviewSource `json:"source"`
}

// Review is the persisted form of a RawReview. Reviews are created once at
// ingestion and never mutated; they are deleted only via project cascade.
type Review struct {
	ID         string       `json:"id"`
	ProjectID  string       `json:"project_id"`
	Text       string       `json:"text"`
	Rating     int          `json:"rating"`
	Author     string       `json:"author"`
	OccurredOn time.Time    `json:"occurred_on"`
	Source     ReviewSource `json:"source"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
