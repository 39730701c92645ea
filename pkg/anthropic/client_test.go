package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost_KnownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	cost := u.EstimateCost("claude-haiku-4-5-20251001")
	assert.InDelta(t, 4.80, cost, 0.001)
}

func TestEstimateCost_CacheTokens(t *testing.T) {
	u := TokenUsage{CacheCreationInputTokens: 1_000_000, CacheReadInputTokens: 1_000_000}
	cost := u.EstimateCost("claude-sonnet-4-5-20250929")
	// write at 1.25x input rate, read at 0.1x.
	assert.InDelta(t, 3.0*1.25+3.0*0.1, cost, 0.001)
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1000}
	assert.Zero(t, u.EstimateCost("some-other-model"))
}

func TestResponseText(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "hello"},
		{Type: "text", Text: ""},
		{Type: "text", Text: "world"},
	}}
	assert.Equal(t, "hello\nworld", resp.Text())

	var nilResp *MessageResponse
	assert.Equal(t, "", nilResp.Text())
}
