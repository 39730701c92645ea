// Package merge combines review sets fetched by independent providers into
// one deduplicated list. Providers disagree on formatting and truncation of
// the same underlying review, so duplicates are detected by coarse text
// similarity rather than exact matching.
package merge

import (
	"strings"

	"go.uber.org/zap"

	"github.com/reviewlens/reviews-cli/internal/model"
)

// overlapThreshold is the word-overlap ratio above which two texts count as
// the same review. Tunable, not load-bearing.
const overlapThreshold = 0.7

// ProviderSet is one provider's fetch output, tagged with the provider name
// for logging.
type ProviderSet struct {
	Provider string
	Reviews  []model.RawReview
}

// Merge combines provider sets in the given order, which must be descending
// trust: a review from a later set is kept only if it is not similar to any
// review already kept.
func Merge(sets []ProviderSet) []model.RawReview {
	var merged []model.RawReview
	for _, set := range sets {
		added := 0
		for _, r := range set.Reviews {
			if isDuplicate(r.Text, merged) {
				continue
			}
			merged = append(merged, r)
			added++
		}
		if len(set.Reviews) > 0 {
			zap.L().Debug("merged provider reviews",
				zap.String("provider", set.Provider),
				zap.Int("fetched", len(set.Reviews)),
				zap.Int("added", added),
				zap.Int("dropped", len(set.Reviews)-added),
			)
		}
	}
	return merged
}

func isDuplicate(text string, kept []model.RawReview) bool {
	for _, k := range kept {
		if TextsSimilar(text, k.Text) {
			return true
		}
	}
	return false
}

// TextsSimilar reports whether two review texts describe the same review.
// Two texts are similar if the shorter is a case-insensitive substring of
// the longer, or if the ratio of shared whitespace-separated tokens to the
// smaller token count exceeds 0.7.
func TextsSimilar(a, b string) bool {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	if la == "" || lb == "" {
		return la == lb
	}

	if len(la) <= len(lb) {
		if strings.Contains(lb, la) {
			return true
		}
	} else if strings.Contains(la, lb) {
		return true
	}

	return wordOverlap(la, lb) > overlapThreshold
}

// wordOverlap is the count of shared tokens divided by the smaller token
// count. Token multiplicity is ignored.
func wordOverlap(a, b string) float64 {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(ta))
	for _, t := range ta {
		seen[t] = struct{}{}
	}

	shared := 0
	counted := make(map[string]struct{}, len(tb))
	for _, t := range tb {
		if _, dup := counted[t]; dup {
			continue
		}
		counted[t] = struct{}{}
		if _, ok := seen[t]; ok {
			shared++
		}
	}

	smaller := len(ta)
	if len(tb) < smaller {
		smaller = len(tb)
	}
	return float64(shared) / float64(smaller)
}
