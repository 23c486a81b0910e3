// Package recognize converts an image of a handwritten equation into a
// candidate formula string. The live provider is Mathpix; when it is not
// configured or fails, a deterministic fallback formula keeps the pipeline
// available in degraded mode.
package recognize

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mathcheck/internal/config"
)

// FallbackFormula is the clearly-marked value returned when recognition is
// unavailable. The user sees it in the correction screen and fixes it by hand.
const FallbackFormula = `\text{[unrecognized equation]}`

// Recognizer extracts a formula from an image payload.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// newRecognizer creates the live Recognizer for the configured provider, or
// nil when the adapter should answer from the fallback alone.
func newRecognizer(cfg config.AdapterConfig, mathpix config.MathpixConfig) (Recognizer, error) {
	switch cfg.Provider {
	case "fallback", "":
		return nil, nil
	case "mathpix":
		if mathpix.AppID == "" || mathpix.AppKey == "" {
			return nil, eris.New("recognize: mathpix provider requires app_id and app_key")
		}
		return NewMathpix(mathpix.AppID, mathpix.AppKey, mathpix.BaseURL), nil
	default:
		return nil, eris.Errorf("recognize: unknown provider %q", cfg.Provider)
	}
}
