package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		w.Write([]byte(`{"places":[{"id":"ChIJabc123","displayName":{"text":"Mario's Pizza"},"rating":4.4,"userRatingCount":212}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.TextSearch(context.Background(), "Mario's Pizza Brooklyn")
	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "ChIJabc123", resp.Places[0].ID)
	assert.Equal(t, "Mario's Pizza", resp.Places[0].DisplayName.Text)
}

func TestGetPlace_WithReviews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places/ChIJabc123", r.URL.Path)
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "reviews")
		w.Write([]byte(`{
			"id":"ChIJabc123",
			"displayName":{"text":"Mario's Pizza"},
			"reviews":[
				{"rating":5,"text":{"text":"Best slice in town"},"authorAttribution":{"displayName":"Ann"},"publishTime":"2026-01-15T10:00:00Z"},
				{"rating":2,"text":{"text":"Cold and late"},"authorAttribution":{"displayName":"Bob"},"publishTime":"2026-02-01T18:30:00Z"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	place, err := c.GetPlace(context.Background(), "ChIJabc123")
	require.NoError(t, err)
	require.Len(t, place.Reviews, 2)
	assert.Equal(t, "Best slice in town", place.Reviews[0].Text.Text)
	assert.Equal(t, "Ann", place.Reviews[0].AuthorAttribution.DisplayName)
	assert.Equal(t, 5, place.Reviews[0].Rating)
}

func TestGetPlace_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"API key invalid"}}`))
	}))
	defer srv.Close()

	c := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := c.GetPlace(context.Background(), "ChIJabc123")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}
