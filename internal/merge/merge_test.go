package merge

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewlens/reviews-cli/internal/model"
)

func raw(text string, source model.ReviewSource) model.RawReview {
	return model.RawReview{Text: text, Rating: 4, Author: "A", Source: source}
}

func TestTextsSimilar(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		// Substring containment, case-insensitive.
		{"Great coffee", "great coffee and a friendly barista", true},
		{"GREAT COFFEE AND A FRIENDLY BARISTA", "great coffee", true},
		// High word overlap without containment.
		{"the soup was cold and the bread stale", "the soup was cold and the bread was hard", true},
		// Low overlap.
		{"amazing pastries every morning", "terrible parking situation outside", false},
		// Identical.
		{"same text", "same text", true},
		// Empty strings.
		{"", "", true},
		{"", "something", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TextsSimilar(tc.a, tc.b), "a=%q b=%q", tc.a, tc.b)
	}
}

func TestMergePrefersHigherTrustProvider(t *testing.T) {
	structured := []model.RawReview{
		raw("The espresso is excellent", model.SourceStructuredAPI),
	}
	scraped := []model.RawReview{
		raw("the espresso is excellent and cheap", model.SourcePaidScrape), // contains the kept text
		raw("Parking is impossible on weekends", model.SourcePaidScrape),
	}

	merged := Merge([]ProviderSet{
		{Provider: "places", Reviews: structured},
		{Provider: "scrapejob", Reviews: scraped},
	})

	require.Len(t, merged, 2)
	assert.Equal(t, model.SourceStructuredAPI, merged[0].Source, "higher-trust copy wins")
	assert.Equal(t, "Parking is impossible on weekends", merged[1].Text)
}

func TestMergeDropsDuplicatesWithinOneSet(t *testing.T) {
	set := []model.RawReview{
		raw("Lovely spot for brunch with the family", model.SourceBrowserScrape),
		raw("lovely spot for brunch", model.SourceBrowserScrape),
	}
	merged := Merge([]ProviderSet{{Provider: "browser", Reviews: set}})
	assert.Len(t, merged, 1)
}

func TestMergeTwoProvidersWithKnownOverlap(t *testing.T) {
	// 100 unique reviews from the first provider, 100 from the second of
	// which 30 duplicate the first set: the merged total must be 170.
	var a, b []model.RawReview
	for i := 0; i < 100; i++ {
		a = append(a, raw(fmt.Sprintf("tasted dish%d with sauce%d and side%d at table%d", i, i, i, i), model.SourceStructuredAPI))
	}
	for i := 0; i < 30; i++ {
		b = append(b, raw(fmt.Sprintf("tasted dish%d with sauce%d and side%d at table%d", i, i, i, i), model.SourcePaidScrape))
	}
	for i := 0; i < 70; i++ {
		b = append(b, raw(fmt.Sprintf("queue%d ruined mood%d during visit%d last week%d honestly", i, i, i, i), model.SourcePaidScrape))
	}

	merged := Merge([]ProviderSet{
		{Provider: "places", Reviews: a},
		{Provider: "scrapejob", Reviews: b},
	})

	require.Len(t, merged, 170)

	// No two survivors may be judged similar.
	for i := range merged {
		for j := i + 1; j < len(merged); j++ {
			assert.False(t, TextsSimilar(merged[i].Text, merged[j].Text),
				"records %d and %d are similar: %q vs %q", i, j, merged[i].Text, merged[j].Text)
		}
	}
}

func TestMergeOutputNeverExceedsInputTotal(t *testing.T) {
	sets := []ProviderSet{
		{Provider: "places", Reviews: []model.RawReview{raw("one unique review text here", model.SourceStructuredAPI)}},
		{Provider: "browser", Reviews: []model.RawReview{raw("a different unique review text", model.SourceBrowserScrape)}},
	}
	merged := Merge(sets)
	assert.LessOrEqual(t, len(merged), 2)
}

func TestMergeEmptyInput(t *testing.T) {
	assert.Empty(t, Merge(nil))
	assert.Empty(t, Merge([]ProviderSet{{Provider: "places"}}))
}
