// Package browser abstracts the headless-browser operations the DOM scrape
// provider needs, so scroll/extract logic can be tested without Chrome.
package browser

import "context"

// ReviewNode is one review-shaped DOM node as extracted from the page.
// Fields other than Text may be empty when the page omits them.
type ReviewNode struct {
	Text   string `json:"text"`
	Author string `json:"author"`
	Rating string `json:"rating"`
	Date   string `json:"date"`
}

// Selector describes how to locate review nodes and their fields. Container
// locates the repeated review element; the field selectors are evaluated
// relative to each container.
type Selector struct {
	Container string `yaml:"container" json:"container"`
	Text      string `yaml:"text" json:"text"`
	Author    string `yaml:"author" json:"author"`
	Rating    string `yaml:"rating" json:"rating"`
	Date      string `yaml:"date" json:"date"`
}

// Session is one browser page session.
type Session interface {
	// Navigate loads the given URL and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error

	// ScrollToBottom scrolls the page (or its main scroll container) down by
	// one viewport to trigger lazy loading.
	ScrollToBottom(ctx context.Context) error

	// Count returns how many nodes currently match the container selector.
	Count(ctx context.Context, containerSelector string) (int, error)

	// Extract pulls all review nodes matching the selector set.
	Extract(ctx context.Context, sel Selector) ([]ReviewNode, error)

	// Close releases the underlying page and browser resources.
	Close() error
}
