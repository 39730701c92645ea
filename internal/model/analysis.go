package model

import "time"

// SentimentCategory is the primary classification of a review.
type SentimentCategory string

const (
	SentimentPositive SentimentCategory = "positive"
	SentimentNegative SentimentCategory = "negative"
	SentimentNeutral  SentimentCategory = "neutral"
)

// AllSentimentCategories returns the valid primary categories.
func AllSentimentCategories() []SentimentCategory {
	return []SentimentCategory{SentimentPositive, SentimentNegative, SentimentNeutral}
}

// Valid reports whether c is one of the known categories.
func (c SentimentCategory) Valid() bool {
	switch c {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Field domain limits enforced by analysis validation.
const (
	MaxSecondaryCategories = 5
	MaxThemes              = 5
	MaxKeyPhrases          = 5
	MaxSummaryLen          = 200
)

// ReviewAnalysisResult is the validated output of analyzing one review.
// Every field is guaranteed to be within its declared domain: the category
// is a known enum value, confidence is in [0,1], sentiment in [-1,1], the
// list fields hold at most five entries, and the summary is capped at 200
// characters.
type ReviewAnalysisResult struct {
	PrimaryCategory     SentimentCategory `json:"primary_category"`
	PrimaryConfidence   float64           `json:"primary_confidence"`
	SecondaryCategories []string          `json:"secondary_categories"`
	Themes              []string          `json:"themes"`
	SentimentScore      float64           `json:"sentiment_score"`
	KeyPhrases          []string          `json:"key_phrases"`
	Summary             string            `json:"summary"`
	Metadata            AnalysisMetadata  `json:"model_metadata"`
}

// AnalysisMetadata records how a result was produced.
type AnalysisMetadata struct {
	ModelUsed      string        `json:"model_used"`
	AnalysisDate   time.Time     `json:"analysis_date"`
	ProcessingTime time.Duration `json:"processing_time"`
	Fallback       bool          `json:"fallback,omitempty"`
}

// ReviewAnalysis is the persisted analysis record, one-to-one (at most)
// with a Review. Created once, never mutated, deleted via review cascade.
type ReviewAnalysis struct {
	ID        string               `json:"id"`
	ReviewID  string               `json:"review_id"`
	Result    ReviewAnalysisResult `json:"result"`
	CreatedAt time.Time            `json:"created_at"`
}

// TokenUsage aggregates LLM token consumption across an analysis run.
type TokenUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheCreationTokens int `json:"cache_creation_tokens"`
	CacheReadTokens     int `json:"cache_read_tokens"`
}

// Add accumulates another usage tally into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.CacheReadTokens += other.CacheReadTokens
}
