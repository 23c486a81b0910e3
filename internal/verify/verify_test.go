package verify

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mathcheck/internal/config"
	"github.com/sells-group/mathcheck/pkg/anthropic"
)

// mockAnthropicClient returns canned responses for CreateMessage.
type mockAnthropicClient struct {
	text string
	err  error

	lastReq anthropic.MessageRequest
	calls   int
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &anthropic.MessageResponse{ID: "msg_1", Model: req.Model, Text: m.text}, nil
}

func fastAdapterConfig() config.AdapterConfig {
	return config.AdapterConfig{TimeoutSecs: 2, MaxAttempts: 2, RatePerSec: 1000}
}

func TestClaude_StructuredVerdict(t *testing.T) {
	mock := &mockAnthropicClient{
		text: `{"is_correct": true, "explanation": "substituting x=-1 gives 0", "steps": ["factor", "substitute"]}`,
	}
	c := NewClaude(mock, config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929"})

	v, err := c.Verify(context.Background(), `x^2+2x+1=0`, "x = -1")
	require.NoError(t, err)
	assert.True(t, v.IsCorrect)
	assert.Equal(t, "substituting x=-1 gives 0", v.Explanation)
	assert.Equal(t, []string{"factor", "substitute"}, v.Steps)
	assert.False(t, v.Fallback)

	assert.Contains(t, mock.lastReq.Messages[0].Content, `x^2+2x+1=0`)
	assert.Contains(t, mock.lastReq.Messages[0].Content, "x = -1")
}

func TestClaude_CodeFencedJSON(t *testing.T) {
	mock := &mockAnthropicClient{
		text: "```json\n{\"is_correct\": false, \"explanation\": \"x=1 does not satisfy the equation\", \"steps\": [\"substitute\"]}\n```",
	}
	c := NewClaude(mock, config.AnthropicConfig{Model: "m"})

	v, err := c.Verify(context.Background(), `x^2=4`, "x = 1")
	require.NoError(t, err)
	assert.False(t, v.IsCorrect)
}

func TestParseVerdict_LegacyHeuristic(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"affirmative", "The solution is correct.\nBoth sides match.", true},
		{"negation wins", "This looks correct at first, but it is actually incorrect.", false},
		{"plain wrong", "The solution is wrong: the sign flips in step 2.", false},
		{"no markers", "Let me think about this equation.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVerdict(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.IsCorrect)
			assert.Equal(t, tt.text, v.Explanation)
			assert.NotEmpty(t, v.Steps)
		})
	}
}

func TestParseVerdict_Empty(t *testing.T) {
	_, err := parseVerdict("   ")
	require.Error(t, err)
}

func TestParseVerdict_IncompleteJSONFallsBackToHeuristic(t *testing.T) {
	// Valid JSON but missing required fields: treated as free text.
	v, err := parseVerdict(`{"explanation": ""} the solution is correct`)
	require.NoError(t, err)
	assert.True(t, v.IsCorrect)
}

func TestAdapter_AbsorbsFailure(t *testing.T) {
	mock := &mockAnthropicClient{err: eris.New("api quota exhausted")}
	a := newAdapterWith(NewClaude(mock, config.AnthropicConfig{Model: "m"}), fastAdapterConfig())

	v := a.Verify(context.Background(), "x=1", "x=1")
	assert.True(t, v.Fallback)
	assert.False(t, v.IsCorrect)
	assert.NotEmpty(t, v.Explanation)
	assert.NotEmpty(t, v.Steps)
}

func TestAdapter_FallbackDeterminism(t *testing.T) {
	a := newAdapterWith(nil, fastAdapterConfig())

	first := a.Verify(context.Background(), "x=1", "x=1")
	second := a.Verify(context.Background(), "x=1", "x=1")
	assert.Equal(t, first, second)
	assert.True(t, first.Fallback)
	assert.False(t, first.IsCorrect)
}

func TestAdapter_RetriesTransient(t *testing.T) {
	mock := &mockAnthropicClient{err: eris.New("i/o timeout")}
	a := newAdapterWith(NewClaude(mock, config.AnthropicConfig{Model: "m"}), fastAdapterConfig())
	a.retry.InitialBackoff = 1 // keep the test fast

	v := a.Verify(context.Background(), "x=1", "x=1")
	assert.True(t, v.Fallback)
	assert.Equal(t, 2, mock.calls)
}

func TestNewAdapter_ClaudeRequiresKey(t *testing.T) {
	cfg := fastAdapterConfig()
	cfg.Provider = "claude"
	_, err := NewAdapter(cfg, config.AnthropicConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic key")
}

func TestNewAdapter_UnknownProvider(t *testing.T) {
	cfg := fastAdapterConfig()
	cfg.Provider = "gemini"
	_, err := NewAdapter(cfg, config.AnthropicConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
