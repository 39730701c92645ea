package provider

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/reviewlens/reviews-cli/internal/model"
	"github.com/reviewlens/reviews-cli/internal/resilience"
	"github.com/reviewlens/reviews-cli/pkg/places"
)

// placeIDPattern matches a raw Places resource ID, which can appear in
// shared map URLs or be passed directly as the location reference.
var placeIDPattern = regexp.MustCompile(`\b(ChIJ[0-9A-Za-z_-]{10,})\b`)

// PlacesProvider fetches reviews through the structured Places API. It is
// the highest-trust source: reviews arrive typed and attributed, but the
// API returns only a small fixed window of them per place.
type PlacesProvider struct {
	client places.Client
	retry  resilience.RetryConfig
}

// NewPlacesProvider creates the structured-API provider. A nil client means
// no credential was configured; Fetch will return a ConfigError.
func NewPlacesProvider(client places.Client, retry resilience.RetryConfig) *PlacesProvider {
	return &PlacesProvider{client: client, retry: retry}
}

func (p *PlacesProvider) Name() string { return NamePlaces }

// Fetch resolves locationRef to a place ID, then pulls that place's review
// window in a single details call.
func (p *PlacesProvider) Fetch(ctx context.Context, locationRef string, limit int) (*FetchResult, error) {
	if p.client == nil {
		return nil, &ConfigError{Provider: NamePlaces}
	}

	placeID, err := p.resolvePlaceID(ctx, locationRef)
	if err != nil {
		return nil, err
	}

	place, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*places.Place, error) {
		return p.client.GetPlace(ctx, placeID)
	})
	if err != nil {
		return nil, p.wrapUpstream(err)
	}

	reviews := make([]model.RawReview, 0, len(place.Reviews))
	for _, r := range place.Reviews {
		reviews = append(reviews, model.RawReview{
			Text:       strings.TrimSpace(r.Text.Text),
			Rating:     clampRating(r.Rating),
			Author:     r.AuthorAttribution.DisplayName,
			OccurredOn: r.PublishTime,
			Source:     model.SourceStructuredAPI,
		})
	}
	reviews = dropEmptyText(reviews)

	if len(reviews) > limit && limit > 0 {
		reviews = reviews[:limit]
	}

	zap.L().Debug("places: fetched reviews",
		zap.String("place_id", placeID),
		zap.Int("count", len(reviews)),
	)

	return &FetchResult{
		Provider:  NamePlaces,
		Reviews:   reviews,
		Requested: limit,
		Achieved:  len(reviews),
		Partial:   limit > 0 && len(reviews) < limit,
	}, nil
}

// resolvePlaceID derives a stable place identifier: directly from the
// reference when it embeds one, otherwise via a text search call.
func (p *PlacesProvider) resolvePlaceID(ctx context.Context, locationRef string) (string, error) {
	if m := placeIDPattern.FindString(locationRef); m != "" {
		return m, nil
	}
	if u, err := url.Parse(locationRef); err == nil {
		if id := u.Query().Get("place_id"); id != "" {
			return id, nil
		}
	}

	query := searchQueryFrom(locationRef)
	if query == "" {
		return "", &ResolutionError{Ref: locationRef}
	}

	resp, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*places.TextSearchResponse, error) {
		return p.client.TextSearch(ctx, query)
	})
	if err != nil {
		return "", p.wrapUpstream(err)
	}
	if len(resp.Places) == 0 || resp.Places[0].ID == "" {
		return "", &ResolutionError{Ref: locationRef}
	}
	return resp.Places[0].ID, nil
}

// searchQueryFrom turns a location reference into a text-search query.
// Map URLs carry the place name in their /maps/place/<name>/ segment;
// anything that is not a URL is used verbatim.
func searchQueryFrom(locationRef string) string {
	ref := strings.TrimSpace(locationRef)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return ref
	}

	const marker = "/maps/place/"
	if idx := strings.Index(u.Path, marker); idx >= 0 {
		rest := u.Path[idx+len(marker):]
		if end := strings.Index(rest, "/"); end >= 0 {
			rest = rest[:end]
		}
		if decoded, err := url.PathUnescape(rest); err == nil {
			rest = decoded
		}
		return strings.ReplaceAll(rest, "+", " ")
	}
	return ""
}

func (p *PlacesProvider) wrapUpstream(err error) error {
	var apiErr *places.APIError
	status := 0
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	return &UpstreamError{Provider: NamePlaces, StatusCode: status, Err: err}
}
