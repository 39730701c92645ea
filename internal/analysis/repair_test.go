package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"already clean",
			`{"primary_category":"positive"}`,
			`{"primary_category":"positive"}`,
		},
		{
			"code fence with language",
			"```json\n{\"primary_category\":\"positive\"}\n```",
			`{"primary_category":"positive"}`,
		},
		{
			"bare code fence",
			"```\n{\"a\":1}\n```",
			`{"a":1}`,
		},
		{
			"leading and trailing prose",
			"Here is the analysis you asked for:\n{\"a\":1}\nLet me know if you need more.",
			`{"a":1}`,
		},
		{
			"trailing commas",
			`{"themes":["price","service",],}`,
			`{"themes":["price","service"]}`,
		},
		{
			"typographic quotes",
			`{“primary_category”:“neutral”}`,
			`{"primary_category":"neutral"}`,
		},
		{
			"no json object at all",
			"I cannot analyze this review.",
			"",
		},
		{
			"empty input",
			"",
			"",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cleanJSON(tc.in))
		})
	}
}

func TestExtractFields(t *testing.T) {
	raw := `The model said: "primary_category": "Negative", "primary_confidence": 0.82,
something broken here "sentiment_score": -0.6 and no closing brace`

	ex := extractFields(raw)
	assert.True(t, ex.HasCategory)
	assert.Equal(t, "negative", ex.Category)
	assert.True(t, ex.HasConfidence)
	assert.InDelta(t, 0.82, ex.Confidence, 1e-9)
	assert.True(t, ex.HasSentiment)
	assert.InDelta(t, -0.6, ex.Sentiment, 1e-9)
}

func TestExtractFieldsNothingFound(t *testing.T) {
	ex := extractFields("complete nonsense")
	assert.False(t, ex.HasCategory)
	assert.False(t, ex.HasConfidence)
	assert.False(t, ex.HasSentiment)
}
