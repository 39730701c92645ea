package analysis

import (
	"time"

	"github.com/reviewlens/reviews-cli/internal/model"
)

// fallbackConfidence is deliberately low: a fallback result is a guess from
// the star rating, not an analysis.
const fallbackConfidence = 0.3

// fallbackResult is the deterministic degraded result used when the model
// call fails outright. It always satisfies the full result contract, so
// persistence of a batch is never blocked by one bad record.
func fallbackResult(reviewText string, rating int, modelName string, elapsed time.Duration) model.ReviewAnalysisResult {
	category := inferCategory(rating)
	return model.ReviewAnalysisResult{
		PrimaryCategory:     category,
		PrimaryConfidence:   fallbackConfidence,
		SecondaryCategories: []string{},
		Themes:              []string{},
		SentimentScore:      sentimentFor(category),
		KeyPhrases:          []string{},
		Summary:             synthesizeSummary(reviewText, category),
		Metadata: model.AnalysisMetadata{
			ModelUsed:      modelName,
			AnalysisDate:   time.Now().UTC(),
			ProcessingTime: elapsed,
			Fallback:       true,
		},
	}
}
