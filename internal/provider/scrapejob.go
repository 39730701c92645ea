package provider

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/reviewlens/reviews-cli/internal/model"
	"github.com/reviewlens/reviews-cli/internal/resilience"
	"github.com/reviewlens/reviews-cli/pkg/outscraper"
)

// ScrapeJobProvider fetches reviews through the paid Outscraper service.
// Jobs may complete synchronously or require polling; the upstream is also
// allowed to deliver fewer reviews than requested, which is surfaced as a
// partial result rather than an error.
type ScrapeJobProvider struct {
	client  outscraper.Client
	breaker *resilience.CircuitBreaker
	poll    []outscraper.PollOption
}

// NewScrapeJobProvider creates the paid-scrape provider. A nil client means
// no credential was configured.
func NewScrapeJobProvider(client outscraper.Client, breaker *resilience.CircuitBreaker, pollOpts ...outscraper.PollOption) *ScrapeJobProvider {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	}
	return &ScrapeJobProvider{client: client, breaker: breaker, poll: pollOpts}
}

func (p *ScrapeJobProvider) Name() string { return NameScrapeJob }

func (p *ScrapeJobProvider) Fetch(ctx context.Context, locationRef string, limit int) (*FetchResult, error) {
	if p.client == nil {
		return nil, &ConfigError{Provider: NameScrapeJob}
	}

	job, err := resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) (*outscraper.JobResponse, error) {
		return p.client.SubmitReviewsJob(ctx, outscraper.ReviewsJobRequest{
			Query: locationRef,
			Limit: limit,
		})
	})
	if err != nil {
		return nil, p.wrapUpstream(err)
	}

	if job.Status == outscraper.StatusPending {
		zap.L().Debug("scrapejob: job pending, polling",
			zap.String("job_id", job.ID),
		)
		job, err = outscraper.PollJob(ctx, p.client, job.ID, p.poll...)
		if err != nil {
			if errors.Is(err, outscraper.ErrPollExhausted) {
				return nil, &TimeoutError{Provider: NameScrapeJob, Attempts: 12, Err: err}
			}
			return nil, p.wrapUpstream(err)
		}
	}

	reviews := collectJobReviews(job)
	if len(reviews) == 0 {
		return nil, &NoReviewsFoundError{Provider: NameScrapeJob, Ref: locationRef}
	}
	if limit > 0 && len(reviews) > limit {
		reviews = reviews[:limit]
	}

	partial := limit > 0 && len(reviews) < limit
	if partial {
		zap.L().Info("scrapejob: upstream returned fewer reviews than requested",
			zap.Int("requested", limit),
			zap.Int("achieved", len(reviews)),
		)
	}

	return &FetchResult{
		Provider:  NameScrapeJob,
		Reviews:   reviews,
		Requested: limit,
		Achieved:  len(reviews),
		Partial:   partial,
	}, nil
}

func collectJobReviews(job *outscraper.JobResponse) []model.RawReview {
	var reviews []model.RawReview
	for _, place := range job.Data {
		for _, r := range place.Reviews {
			reviews = append(reviews, model.RawReview{
				Text:       strings.TrimSpace(r.Text),
				Rating:     clampRating(int(math.Round(r.Rating))),
				Author:     r.Author,
				OccurredOn: r.ParsedTime(),
				Source:     model.SourcePaidScrape,
			})
		}
	}
	return dropEmptyText(reviews)
}

func (p *ScrapeJobProvider) wrapUpstream(err error) error {
	var apiErr *outscraper.APIError
	status := 0
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	return &UpstreamError{Provider: NameScrapeJob, StatusCode: status, Err: err}
}
