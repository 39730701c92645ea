package provider

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reviewlens/reviews-cli/internal/model"
	"github.com/reviewlens/reviews-cli/pkg/browser"
)

const (
	// browserNoGrowthLimit ends the scroll loop after this many consecutive
	// observations where the review-node count did not increase.
	browserNoGrowthLimit = 3

	// browserHardCap bounds a single browser session regardless of the
	// requested limit; infinite feeds must not pin a Chrome process forever.
	browserHardCap = 500

	defaultAuthor = "Anonymous"
)

// ratingPattern pulls the leading numeric value out of rating strings such
// as "4.0", "Rated 4.5 out of 5" or aria-labels like "5 stars".
var ratingPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// SessionFactory opens a fresh browser session. The provider owns the
// session for the duration of one Fetch and closes it on return.
type SessionFactory func(ctx context.Context) (browser.Session, error)

// BrowserProvider drives a headless browser against the review page itself.
// Lowest trust, last in the chain: it sees whatever the page renders, so it
// works without any credential, but fields arrive as untyped strings.
type BrowserProvider struct {
	newSession SessionFactory
	selectors  []browser.Selector

	// scrollDelay separates scroll observations; overridable in tests.
	scrollDelay time.Duration
}

// NewBrowserProvider creates the DOM-scrape provider. A nil factory means
// browser scraping is disabled. An empty selector list falls back to the
// embedded defaults.
func NewBrowserProvider(factory SessionFactory, selectors []browser.Selector) *BrowserProvider {
	if len(selectors) == 0 {
		selectors = DefaultSelectors()
	}
	return &BrowserProvider{
		newSession:  factory,
		selectors:   selectors,
		scrollDelay: 750 * time.Millisecond,
	}
}

func (p *BrowserProvider) Name() string { return NameBrowser }

func (p *BrowserProvider) Fetch(ctx context.Context, locationRef string, limit int) (*FetchResult, error) {
	if p.newSession == nil {
		return nil, &ConfigError{Provider: NameBrowser}
	}

	sess, err := p.newSession(ctx)
	if err != nil {
		return nil, &UpstreamError{Provider: NameBrowser, Err: err}
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, locationRef); err != nil {
		return nil, &UpstreamError{Provider: NameBrowser, Err: err}
	}

	sel, found, err := p.pickSelector(ctx, sess)
	if err != nil {
		return nil, &UpstreamError{Provider: NameBrowser, Err: err}
	}
	if !found {
		return nil, &NoReviewsFoundError{Provider: NameBrowser, Ref: locationRef}
	}

	target := limit
	if target <= 0 || target > browserHardCap {
		target = browserHardCap
	}

	count, err := p.scrollUntilSettled(ctx, sess, sel.Container, target)
	if err != nil {
		return nil, &UpstreamError{Provider: NameBrowser, Err: err}
	}

	nodes, err := sess.Extract(ctx, sel)
	if err != nil {
		return nil, &UpstreamError{Provider: NameBrowser, Err: err}
	}

	reviews := dropEmptyText(nodesToReviews(nodes))
	if len(reviews) == 0 {
		return nil, &NoReviewsFoundError{Provider: NameBrowser, Ref: locationRef}
	}
	if limit > 0 && len(reviews) > limit {
		reviews = reviews[:limit]
	}

	zap.L().Debug("browser: extracted reviews",
		zap.String("container", sel.Container),
		zap.Int("nodes", count),
		zap.Int("kept", len(reviews)),
	)

	return &FetchResult{
		Provider:  NameBrowser,
		Reviews:   reviews,
		Requested: limit,
		Achieved:  len(reviews),
		Partial:   limit > 0 && len(reviews) < limit,
	}, nil
}

// pickSelector walks the prioritized list and returns the first selector
// whose container matches anything on the page.
func (p *BrowserProvider) pickSelector(ctx context.Context, sess browser.Session) (browser.Selector, bool, error) {
	for _, sel := range p.selectors {
		n, err := sess.Count(ctx, sel.Container)
		if err != nil {
			return browser.Selector{}, false, err
		}
		if n > 0 {
			return sel, true, nil
		}
	}
	return browser.Selector{}, false, nil
}

// scrollUntilSettled keeps scrolling while new review nodes appear. It stops
// when the target count is reached, when the count stops growing for
// browserNoGrowthLimit consecutive observations, or when ctx ends.
func (p *BrowserProvider) scrollUntilSettled(ctx context.Context, sess browser.Session, container string, target int) (int, error) {
	last, err := sess.Count(ctx, container)
	if err != nil {
		return 0, err
	}

	stalled := 0
	for last < target && stalled < browserNoGrowthLimit {
		if err := sess.ScrollToBottom(ctx); err != nil {
			return last, err
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(p.scrollDelay):
		}

		n, err := sess.Count(ctx, container)
		if err != nil {
			return last, err
		}
		if n > last {
			stalled = 0
		} else {
			stalled++
		}
		last = n
	}
	return last, nil
}

func nodesToReviews(nodes []browser.ReviewNode) []model.RawReview {
	reviews := make([]model.RawReview, 0, len(nodes))
	for _, n := range nodes {
		author := strings.TrimSpace(n.Author)
		if author == "" {
			author = defaultAuthor
		}
		reviews = append(reviews, model.RawReview{
			Text:       strings.TrimSpace(n.Text),
			Rating:     parseRating(n.Rating),
			Author:     author,
			OccurredOn: parseLooseDate(n.Date),
			Source:     model.SourceBrowserScrape,
		})
	}
	return reviews
}

// parseRating extracts a 1..5 rating from whatever string the page exposed,
// defaulting to neutral when nothing numeric is present.
func parseRating(raw string) int {
	m := ratingPattern.FindString(raw)
	if m == "" {
		return 3
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 3
	}
	return clampRating(int(f + 0.5))
}

// parseLooseDate tries the date layouts review pages commonly render.
// Relative dates ("2 weeks ago") are not resolvable without the page's
// clock, so they yield a zero time.
func parseLooseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"January 2, 2006",
		"Jan 2, 2006",
		"02/01/2006",
		"01/02/2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
