package analysis

import (
	"regexp"
	"strconv"
	"strings"
)

// Model output is untrusted input. The repair pipeline first normalizes the
// raw text into something the JSON parser might accept; if strict parsing
// still fails, targeted regexes salvage the three load-bearing fields.

var (
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

	categoryPattern   = regexp.MustCompile(`"primary_category"\s*:\s*"([a-zA-Z]+)"`)
	confidencePattern = regexp.MustCompile(`"primary_confidence"\s*:\s*(-?\d+(?:\.\d+)?)`)
	sentimentPattern  = regexp.MustCompile(`"sentiment_score"\s*:\s*(-?\d+(?:\.\d+)?)`)
)

// quoteReplacer maps typographic quotes onto their ASCII JSON equivalents.
var quoteReplacer = strings.NewReplacer(
	"“", `"`,
	"”", `"`,
	"‘", "'",
	"’", "'",
)

// cleanJSON repairs the common ways the model wraps or mangles its JSON:
// code fences, leading prose, typographic quotes, trailing commas.
func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	s = s[start : end+1]

	s = quoteReplacer.Replace(s)
	s = trailingCommaPattern.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// extractedFields is the partial result of regex salvage.
type extractedFields struct {
	Category   string
	Confidence float64
	Sentiment  float64

	HasCategory   bool
	HasConfidence bool
	HasSentiment  bool
}

// extractFields pulls primary_category, primary_confidence and
// sentiment_score out of unparseable model output. Anything it cannot find
// stays at the zero value with the corresponding Has flag unset.
func extractFields(raw string) extractedFields {
	var out extractedFields
	if m := categoryPattern.FindStringSubmatch(raw); m != nil {
		out.Category = strings.ToLower(m[1])
		out.HasCategory = true
	}
	if m := confidencePattern.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out.Confidence = v
			out.HasConfidence = true
		}
	}
	if m := sentimentPattern.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out.Sentiment = v
			out.HasSentiment = true
		}
	}
	return out
}
