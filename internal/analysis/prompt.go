package analysis

import (
	"fmt"
	"strings"
)

// systemPrompt pins the output contract. Both prompt variants share it so
// the response parser only has to understand one shape.
const systemPrompt = `You are a customer review analyst. You respond with exactly one JSON object and nothing else: no prose, no markdown, no code fences.

The JSON object must have exactly these fields:
  "primary_category": one of "positive", "negative", "neutral"
  "primary_confidence": number between 0 and 1
  "secondary_categories": array of at most 5 short strings
  "themes": array of at most 5 short strings
  "sentiment_score": number between -1 (very negative) and 1 (very positive)
  "key_phrases": array of at most 5 short strings quoted or paraphrased from the review
  "summary": one sentence of at most 200 characters`

// verbosePrompt is the standard-quality variant: more guidance, better
// theme extraction, more tokens.
func verbosePrompt(text string, rating int) string {
	var b strings.Builder
	b.WriteString("Analyze the following customer review.\n\n")
	b.WriteString("Consider the overall sentiment, any specific aspects praised or criticized ")
	b.WriteString("(service, product quality, price, atmosphere, speed), and recurring themes a ")
	b.WriteString("business owner would want tracked over time. Base the confidence on how ")
	b.WriteString("unambiguous the review is, not on its length.\n\n")
	if rating > 0 {
		fmt.Fprintf(&b, "The reviewer gave a star rating of %d out of 5.\n\n", rating)
	}
	b.WriteString("Review:\n")
	b.WriteString(text)
	return b.String()
}

// tersePrompt is the throughput-optimized variant used in fast mode.
func tersePrompt(text string, rating int) string {
	var b strings.Builder
	b.WriteString("Classify this review.")
	if rating > 0 {
		fmt.Fprintf(&b, " Star rating: %d/5.", rating)
	}
	b.WriteString("\n\n")
	b.WriteString(text)
	return b.String()
}
