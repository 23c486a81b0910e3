// Package verify judges a submitted solution against a formula and produces
// a verdict with reasoning. The live provider is Claude; a deterministic
// conservative fallback keeps the caller-facing contract intact when the
// capability is unavailable.
package verify

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mathcheck/internal/config"
	"github.com/sells-group/mathcheck/internal/model"
	"github.com/sells-group/mathcheck/pkg/anthropic"
)

// Verifier produces a verdict for a (formula, solution) pair.
type Verifier interface {
	Verify(ctx context.Context, formula, solution string) (*model.Verdict, error)
}

// FallbackVerdict is the fixed verdict returned when verification is
// unavailable. IsCorrect defaults to false: the system never confirms a
// solution it could not check.
func FallbackVerdict() *model.Verdict {
	return &model.Verdict{
		IsCorrect:   false,
		Explanation: "Automatic verification is temporarily unavailable; the solution could not be checked. Please try again later.",
		Steps:       []string{"verification service unavailable", "conservative default applied"},
		Fallback:    true,
	}
}

// newVerifier creates the live Verifier for the configured provider, or nil
// when the adapter should answer from the fallback alone.
func newVerifier(cfg config.AdapterConfig, anthropicCfg config.AnthropicConfig) (Verifier, error) {
	switch cfg.Provider {
	case "fallback", "":
		return nil, nil
	case "claude":
		if anthropicCfg.Key == "" {
			return nil, eris.New("verify: claude provider requires anthropic key")
		}
		return NewClaude(anthropic.NewClient(anthropicCfg.Key), anthropicCfg), nil
	default:
		return nil, eris.Errorf("verify: unknown provider %q", cfg.Provider)
	}
}
