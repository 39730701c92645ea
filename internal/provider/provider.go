// Package provider contains the review source connectors: the structured
// Places API, the Outscraper async job service, and headless-browser DOM
// scraping. Each provider is independently retryable and independently
// fallible; the tracker decides how their failures combine.
package provider

import (
	"context"
	"strings"

	"github.com/reviewlens/reviews-cli/internal/model"
)

// Provider names, in descending trust order.
const (
	NamePlaces    = "places"
	NameScrapeJob = "scrapejob"
	NameBrowser   = "browser"
)

// FetchResult is the outcome of one provider fetch. Achieved may be lower
// than Requested without the fetch being an error; Partial flags that case.
type FetchResult struct {
	Provider  string
	Reviews   []model.RawReview
	Requested int
	Achieved  int
	Partial   bool
}

// Provider turns a location reference (URL or free-text place query) into
// raw review records.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, locationRef string, limit int) (*FetchResult, error)
}

// dropEmptyText removes records with no usable text. Providers apply this
// before returning so empty records never reach the merger.
func dropEmptyText(reviews []model.RawReview) []model.RawReview {
	kept := reviews[:0]
	for _, r := range reviews {
		if strings.TrimSpace(r.Text) != "" {
			kept = append(kept, r)
		}
	}
	return kept
}

// clampRating forces a rating into the 1..5 domain, defaulting to 3 when
// the source omitted it.
func clampRating(rating int) int {
	if rating < 1 || rating > 5 {
		return 3
	}
	return rating
}
