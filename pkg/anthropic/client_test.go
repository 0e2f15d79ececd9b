package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: `{"isRelevant":`},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: `true}`},
		},
	}
	assert.Equal(t, `{"isRelevant":true}`, resp.Text())
}

func TestTokenUsage_Add(t *testing.T) {
	u := TokenUsage{InputTokens: 100, OutputTokens: 10}
	u.Add(TokenUsage{InputTokens: 50, OutputTokens: 5, CacheReadInputTokens: 200})

	assert.Equal(t, int64(150), u.InputTokens)
	assert.Equal(t, int64(15), u.OutputTokens)
	assert.Equal(t, int64(200), u.CacheReadInputTokens)
}

func TestTokenUsage_EstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}

	assert.InDelta(t, 4.80, u.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
	assert.Zero(t, u.EstimateCost("unknown-model"))
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	blocks := BuildCachedSystemBlocks("instruction")

	assert.Len(t, blocks, 1)
	assert.Equal(t, "instruction", blocks[0].Text)
	assert.Equal(t, "1h", blocks[0].CacheControl.TTL)
}
