// Package outscraper is a client for the Outscraper reviews API. Review
// jobs may complete synchronously or come back pending with a request ID
// that has to be polled until a terminal state.
package outscraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.outscraper.cloud"

// Job status values reported by the API.
const (
	StatusPending = "Pending"
	StatusSuccess = "Success"
	StatusFailed  = "Failed"
)

// Client defines the Outscraper operations used by the scrape-job provider.
type Client interface {
	SubmitReviewsJob(ctx context.Context, req ReviewsJobRequest) (*JobResponse, error)
	GetJob(ctx context.Context, requestID string) (*JobResponse, error)
}

// ReviewsJobRequest asks for up to Limit reviews of the place at Query
// (a URL or free-text place reference).
type ReviewsJobRequest struct {
	Query string
	Limit int
}

// JobResponse is the (possibly still pending) result of a reviews job.
type JobResponse struct {
	ID     string      `json:"id"`
	Status string      `json:"status"`
	Data   []PlaceData `json:"data"`
}

// PlaceData holds the reviews scraped for one place.
type PlaceData struct {
	Name    string       `json:"name"`
	Reviews []ReviewData `json:"reviews_data"`
}

// ReviewData is a single scraped review.
type ReviewData struct {
	Text     string  `json:"review_text"`
	Rating   float64 `json:"review_rating"`
	Author   string  `json:"author_title"`
	Datetime string  `json:"review_datetime_utc"` // "01/02/2006 15:04:05"
}

// ParsedTime returns the review timestamp, or the zero time if absent or
// malformed.
func (r ReviewData) ParsedTime() time.Time {
	t, err := time.Parse("01/02/2006 15:04:05", r.Datetime)
	if err != nil {
		return time.Time{}
	}
	return t
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("outscraper: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Outscraper client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SubmitReviewsJob(ctx context.Context, req ReviewsJobRequest) (*JobResponse, error) {
	q := url.Values{}
	q.Set("query", req.Query)
	if req.Limit > 0 {
		q.Set("reviewsLimit", strconv.Itoa(req.Limit))
	}
	q.Set("async", "true")

	var resp JobResponse
	if err := c.get(ctx, "/maps/reviews-v3?"+q.Encode(), &resp); err != nil {
		return nil, eris.Wrap(err, "outscraper: submit reviews job")
	}
	return &resp, nil
}

func (c *httpClient) GetJob(ctx context.Context, requestID string) (*JobResponse, error) {
	var resp JobResponse
	if err := c.get(ctx, "/requests/"+requestID, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("outscraper: get job %s", requestID))
	}
	return &resp, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
