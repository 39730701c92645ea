package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reviewlens/reviews-cli/internal/model"
)

// rawResult is the unvalidated shape of a model response. List fields are
// decoded loosely because the model occasionally mixes numbers or nested
// objects into them.
type rawResult struct {
	PrimaryCategory     string  `json:"primary_category"`
	PrimaryConfidence   float64 `json:"primary_confidence"`
	SecondaryCategories []any   `json:"secondary_categories"`
	Themes              []any   `json:"themes"`
	SentimentScore      float64 `json:"sentiment_score"`
	KeyPhrases          []any   `json:"key_phrases"`
	Summary             string  `json:"summary"`
}

// parseResponse turns raw model output into a validated result. The bool
// reports whether strict parsing succeeded; on false the result was salvaged
// by regex extraction and carries placeholder list fields.
func parseResponse(raw, reviewText string, rating int) (model.ReviewAnalysisResult, bool) {
	cleaned := cleanJSON(raw)

	var parsed rawResult
	if cleaned != "" {
		if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil {
			return validate(parsed, reviewText, rating), true
		}
	}

	ex := extractFields(raw)
	salvaged := rawResult{
		PrimaryCategory:   ex.Category,
		PrimaryConfidence: ex.Confidence,
		SentimentScore:    ex.Sentiment,
	}
	if !ex.HasConfidence {
		salvaged.PrimaryConfidence = fallbackConfidence
	}
	if !ex.HasSentiment {
		salvaged.SentimentScore = sentimentFor(inferCategory(rating))
	}
	return validate(salvaged, reviewText, rating), false
}

// validate clamps every field into its declared domain. It is applied on
// every parse path so downstream code never sees an out-of-domain value.
func validate(r rawResult, reviewText string, rating int) model.ReviewAnalysisResult {
	category := model.SentimentCategory(strings.ToLower(strings.TrimSpace(r.PrimaryCategory)))
	if !category.Valid() {
		category = inferCategory(rating)
	}

	summary := strings.TrimSpace(r.Summary)
	if summary == "" {
		summary = synthesizeSummary(reviewText, category)
	}

	return model.ReviewAnalysisResult{
		PrimaryCategory:     category,
		PrimaryConfidence:   clamp(r.PrimaryConfidence, 0, 1),
		SecondaryCategories: stringEntries(r.SecondaryCategories, model.MaxSecondaryCategories),
		Themes:              stringEntries(r.Themes, model.MaxThemes),
		SentimentScore:      clamp(r.SentimentScore, -1, 1),
		KeyPhrases:          stringEntries(r.KeyPhrases, model.MaxKeyPhrases),
		Summary:             truncate(summary, model.MaxSummaryLen),
	}
}

// inferCategory derives a category from the star rating alone.
func inferCategory(rating int) model.SentimentCategory {
	switch {
	case rating >= 4:
		return model.SentimentPositive
	case rating >= 1 && rating <= 2:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}

func sentimentFor(category model.SentimentCategory) float64 {
	switch category {
	case model.SentimentPositive:
		return 0.5
	case model.SentimentNegative:
		return -0.5
	default:
		return 0
	}
}

func synthesizeSummary(reviewText string, category model.SentimentCategory) string {
	snippet := strings.Join(strings.Fields(reviewText), " ")
	if snippet == "" {
		return fmt.Sprintf("A %s customer review.", category)
	}
	return truncate(fmt.Sprintf("%s review: %s", capitalize(string(category)), snippet), model.MaxSummaryLen)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// stringEntries keeps only the string members of a loosely-typed list,
// trimmed and capped at max.
func stringEntries(items []any, max int) []string {
	out := make([]string, 0, max)
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
