package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewlens/reviews-cli/internal/model"
	"github.com/reviewlens/reviews-cli/internal/resilience"
	"github.com/reviewlens/reviews-cli/pkg/places"
)

type fakePlacesClient struct {
	searchResp *places.TextSearchResponse
	searchErr  error
	place      *places.Place
	placeErr   error

	searchCalls []string
	placeCalls  []string
}

func (f *fakePlacesClient) TextSearch(_ context.Context, query string) (*places.TextSearchResponse, error) {
	f.searchCalls = append(f.searchCalls, query)
	return f.searchResp, f.searchErr
}

func (f *fakePlacesClient) GetPlace(_ context.Context, placeID string) (*places.Place, error) {
	f.placeCalls = append(f.placeCalls, placeID)
	return f.place, f.placeErr
}

func noRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1}
}

func samplePlace() *places.Place {
	return &places.Place{
		ID: "ChIJabcdefghijklm",
		Reviews: []places.Review{
			{
				Rating:            5,
				Text:              places.ReviewText{Text: "The pastries here are worth the detour."},
				AuthorAttribution: places.Author{DisplayName: "Dana R"},
				PublishTime:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			},
			{
				Rating: 2,
				Text:   places.ReviewText{Text: "   "},
			},
			{
				Rating: 9,
				Text:   places.ReviewText{Text: "Rating out of range but text kept."},
			},
		},
	}
}

func TestPlacesFetchWithDirectPlaceID(t *testing.T) {
	fake := &fakePlacesClient{place: samplePlace()}
	p := NewPlacesProvider(fake, noRetry())

	res, err := p.Fetch(context.Background(), "https://maps.example.com/?q=x ChIJabcdefghijklm", 10)
	require.NoError(t, err)

	assert.Empty(t, fake.searchCalls, "embedded place ID should skip text search")
	require.Equal(t, []string{"ChIJabcdefghijklm"}, fake.placeCalls)

	require.Len(t, res.Reviews, 2, "blank-text review dropped")
	assert.Equal(t, NamePlaces, res.Provider)
	assert.Equal(t, model.SourceStructuredAPI, res.Reviews[0].Source)
	assert.Equal(t, "Dana R", res.Reviews[0].Author)
	assert.Equal(t, 3, res.Reviews[1].Rating, "out-of-range rating clamped to neutral")
	assert.True(t, res.Partial)
	assert.Equal(t, 2, res.Achieved)
}

func TestPlacesFetchResolvesViaTextSearch(t *testing.T) {
	fake := &fakePlacesClient{
		searchResp: &places.TextSearchResponse{Places: []places.Place{{ID: "ChIJresolved12345"}}},
		place:      samplePlace(),
	}
	p := NewPlacesProvider(fake, noRetry())

	_, err := p.Fetch(context.Background(), "Blue Door Bakery Portland", 5)
	require.NoError(t, err)

	require.Equal(t, []string{"Blue Door Bakery Portland"}, fake.searchCalls)
	require.Equal(t, []string{"ChIJresolved12345"}, fake.placeCalls)
}

func TestPlacesFetchExtractsNameFromMapsURL(t *testing.T) {
	fake := &fakePlacesClient{
		searchResp: &places.TextSearchResponse{Places: []places.Place{{ID: "ChIJresolved12345"}}},
		place:      samplePlace(),
	}
	p := NewPlacesProvider(fake, noRetry())

	_, err := p.Fetch(context.Background(), "https://www.google.com/maps/place/Blue+Door+Bakery/@45.5,-122.6,17z/", 5)
	require.NoError(t, err)
	require.Equal(t, []string{"Blue Door Bakery"}, fake.searchCalls)
}

func TestPlacesFetchResolutionFailure(t *testing.T) {
	fake := &fakePlacesClient{searchResp: &places.TextSearchResponse{}}
	p := NewPlacesProvider(fake, noRetry())

	_, err := p.Fetch(context.Background(), "nowhere in particular", 5)
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "nowhere in particular", re.Ref)
}

func TestPlacesFetchUpstreamError(t *testing.T) {
	fake := &fakePlacesClient{placeErr: &places.APIError{StatusCode: 403, Body: "quota"}}
	p := NewPlacesProvider(fake, noRetry())

	_, err := p.Fetch(context.Background(), "ChIJabcdefghijklm", 5)
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 403, ue.StatusCode)
	assert.Equal(t, NamePlaces, ue.Provider)
}

func TestPlacesFetchNilClient(t *testing.T) {
	p := NewPlacesProvider(nil, noRetry())
	_, err := p.Fetch(context.Background(), "anything", 5)
	assert.True(t, IsConfig(err))
}

func TestPlacesFetchTruncatesToLimit(t *testing.T) {
	fake := &fakePlacesClient{place: samplePlace()}
	p := NewPlacesProvider(fake, noRetry())

	res, err := p.Fetch(context.Background(), "ChIJabcdefghijklm", 1)
	require.NoError(t, err)
	assert.Len(t, res.Reviews, 1)
	assert.False(t, res.Partial)
}
