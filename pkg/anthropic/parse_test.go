package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON("Here you go: {\"a\":1} Hope that helps!"))
	assert.Equal(t, `{"a":1}`, cleanJSON(`{"a":1}`))
}

func TestParsePassOutputRejectsMissingDimensions(t *testing.T) {
	_, err := parsePassOutput(`{"actions": []}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}

func TestParsePassOutputRejectsNonJSON(t *testing.T) {
	_, err := parsePassOutput("not json at all")
	require.Error(t, err)

	_, err = parsePassOutput("")
	require.Error(t, err)
}

func TestEstimateCostUnknownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.Zero(t, u.EstimateCost("mystery-model"))
	assert.InDelta(t, 4.80, u.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
}

func TestExtractTextSkipsNonTextBlocks(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "hello "},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "world"},
	}}
	assert.Equal(t, "hello world", extractText(resp))
	assert.Empty(t, extractText(nil))
}
