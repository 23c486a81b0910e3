package verify

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mathcheck/internal/config"
	"github.com/sells-group/mathcheck/internal/model"
	"github.com/sells-group/mathcheck/pkg/anthropic"
)

const verifySystemPrompt = `You are a rigorous mathematics grader. You verify whether a student's written solution correctly solves a given equation.

Respond with a single JSON object and nothing else:
{"is_correct": <bool>, "explanation": "<why the solution is right or wrong, with the correct solution if wrong>", "steps": ["<step 1>", "<step 2>", ...]}`

// Claude verifies solutions using the Anthropic Messages API. The model is
// asked for a structured JSON verdict; free-text responses are still
// understood through a legacy heuristic.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaude creates a Claude verifier on top of an Anthropic client.
func NewClaude(client anthropic.Client, cfg config.AnthropicConfig) *Claude {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Claude{
		client:    client,
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

func (c *Claude) Verify(ctx context.Context, formula, solution string) (*model.Verdict, error) {
	temp := 0.1
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      verifySystemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf("Equation: %s\n\nStudent's solution: %s", formula, solution)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "verify: claude call")
	}
	resp.Usage.Log(resp.Model, "verify")

	verdict, err := parseVerdict(resp.Text)
	if err != nil {
		return nil, eris.Wrap(err, "verify: parse verdict")
	}
	return verdict, nil
}
