package toolchain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickchristie/reactlm"
)

func TestParseDecision(t *testing.T) {
	type input struct {
		action reactlm.Envelope
	}

	type expected struct {
		decision Decision
		err      error
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:  "final answer",
			input: input{action: reactlm.JSON(map[string]any{"final_answer": map[string]any{"response": "ok"}})},
			expected: expected{decision: Decision{
				Type:        DecisionFinal,
				FinalAnswer: map[string]any{"response": "ok"},
			}},
		},
		{
			name:     "null final answer still counts",
			input:    input{action: reactlm.JSON(map[string]any{"final_answer": nil})},
			expected: expected{decision: Decision{Type: DecisionFinal}},
		},
		{
			name:  "tool call with input",
			input: input{action: reactlm.JSON(map[string]any{"tool": "search", "input": "go"})},
			expected: expected{decision: Decision{
				Type:  DecisionTool,
				Tool:  "search",
				Input: "go",
			}},
		},
		{
			name:     "tool call without input",
			input:    input{action: reactlm.JSON(map[string]any{"tool": "now"})},
			expected: expected{decision: Decision{Type: DecisionTool, Tool: "now"}},
		},
		{
			name:  "final answer wins over tool",
			input: input{action: reactlm.JSON(map[string]any{"tool": "search", "final_answer": "x"})},
			expected: expected{decision: Decision{
				Type:        DecisionFinal,
				FinalAnswer: "x",
			}},
		},
		{
			name:  "raw JSON content is decoded",
			input: input{action: reactlm.JSON(json.RawMessage(`{"tool":"wiki","input":{"q":"go"}}`))},
			expected: expected{decision: Decision{
				Type:  DecisionTool,
				Tool:  "wiki",
				Input: map[string]any{"q": "go"},
			}},
		},
		{
			name:     "object without known keys is undecided",
			input:    input{action: reactlm.JSON(map[string]any{"thought": "hmm"})},
			expected: expected{decision: Decision{Type: DecisionNone}},
		},
		{
			name:     "text action is undecided",
			input:    input{action: reactlm.Text(`{"final_answer": "looks like JSON"}`)},
			expected: expected{decision: Decision{Type: DecisionNone}},
		},
		{
			name:     "JSON array is malformed",
			input:    input{action: reactlm.JSON([]any{"a"})},
			expected: expected{err: reactlm.ErrMalformedAction},
		},
		{
			name:     "invalid JSON text is malformed",
			input:    input{action: reactlm.JSON("{not json")},
			expected: expected{err: reactlm.ErrMalformedAction},
		},
		{
			name:     "non-string tool is malformed",
			input:    input{action: reactlm.JSON(map[string]any{"tool": []any{"a"}})},
			expected: expected{err: reactlm.ErrMalformedAction},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecision(tt.input.action)
			if tt.expected.err != nil {
				assert.ErrorIs(t, err, tt.expected.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected.decision, got)
		})
	}
}

func TestDecisionType_String(t *testing.T) {
	assert.Equal(t, "none", DecisionNone.String())
	assert.Equal(t, "final", DecisionFinal.String())
	assert.Equal(t, "tool", DecisionTool.String())
}

func TestWrapInput(t *testing.T) {
	type input struct {
		value any
	}

	type expected struct {
		envelope reactlm.Envelope
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "nil",
			input:    input{value: nil},
			expected: expected{envelope: reactlm.Text("")},
		},
		{
			name:     "string",
			input:    input{value: "weather"},
			expected: expected{envelope: reactlm.Text("weather")},
		},
		{
			name:     "object",
			input:    input{value: map[string]any{"q": "weather"}},
			expected: expected{envelope: reactlm.JSON(map[string]any{"q": "weather"})},
		},
		{
			name:     "number",
			input:    input{value: 42.5},
			expected: expected{envelope: reactlm.Text("42.5")},
		},
		{
			name:     "bool",
			input:    input{value: true},
			expected: expected{envelope: reactlm.Text("true")},
		},
		{
			name:     "array",
			input:    input{value: []any{1.0, "x"}},
			expected: expected{envelope: reactlm.Text(`[1,"x"]`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected.envelope, WrapInput(tt.input.value))
		})
	}
}
