// Package ingest contains the pre-analysis quality filter and the file
// importers (CSV, XLSX) that turn uploaded review exports into raw records.
package ingest

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/reviewlens/reviews-cli/internal/model"
)

const (
	minTextLength = 10
	minAlphaChars = 5
)

// stoplist holds exact low-information phrases that are not worth an LLM
// call. Matched against the normalized, lowercased text.
var stoplist = map[string]struct{}{
	"good":      {},
	"bad":       {},
	"ok":        {},
	"nice":      {},
	"great":     {},
	"terrible":  {},
	"awful":     {},
	"thumbs up": {},
	"👍":         {},
	"👎":         {},
	"like":      {},
	"dislike":   {},
}

// Filter drops reviews whose text carries too little information to analyze.
// It is pure and order-preserving; raw reviews are always persisted in full,
// this gate only decides what reaches the analysis engine. The second return
// is the skipped count.
func Filter(reviews []model.Review) ([]model.Review, int) {
	kept := make([]model.Review, 0, len(reviews))
	for _, r := range reviews {
		if Analyzable(r.Text) {
			kept = append(kept, r)
		}
	}
	skipped := len(reviews) - len(kept)
	if skipped > 0 {
		zap.L().Debug("filtered low-information reviews",
			zap.Int("in", len(reviews)),
			zap.Int("skipped", skipped),
		)
	}
	return kept, skipped
}

// Analyzable reports whether a review text passes the quality gate.
func Analyzable(text string) bool {
	normalized := normalizeText(text)
	if len([]rune(normalized)) < minTextLength {
		return false
	}
	if _, hit := stoplist[strings.ToLower(normalized)]; hit {
		return false
	}
	return alphaCount(normalized) >= minAlphaChars
}

// normalizeText applies NFKC so width and compatibility variants compare
// equal, then collapses surrounding whitespace.
func normalizeText(text string) string {
	return strings.TrimSpace(norm.NFKC.String(text))
}

func alphaCount(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
