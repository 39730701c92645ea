package outscraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitReviewsJob_Sync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/reviews-v3", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "50", r.URL.Query().Get("reviewsLimit"))
		w.Write([]byte(`{
			"id":"req-1","status":"Success",
			"data":[{"name":"Mario's Pizza","reviews_data":[
				{"review_text":"Great pie","review_rating":5,"author_title":"Ann","review_datetime_utc":"01/15/2026 10:00:00"}
			]}]
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.SubmitReviewsJob(context.Background(), ReviewsJobRequest{Query: "Mario's Pizza", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)
	require.Len(t, resp.Data, 1)
	require.Len(t, resp.Data[0].Reviews, 1)
	assert.Equal(t, "Great pie", resp.Data[0].Reviews[0].Text)
}

func TestGetJob_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":"quota exceeded"}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.GetJob(context.Background(), "req-1")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
}

func TestReviewData_ParsedTime(t *testing.T) {
	r := ReviewData{Datetime: "01/15/2026 10:30:00"}
	ts := r.ParsedTime()
	assert.Equal(t, 2026, ts.Year())
	assert.Equal(t, time.January, ts.Month())

	assert.True(t, ReviewData{Datetime: "garbage"}.ParsedTime().IsZero())
	assert.True(t, ReviewData{}.ParsedTime().IsZero())
}
