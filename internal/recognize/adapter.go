package recognize

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/mathcheck/internal/config"
	"github.com/sells-group/mathcheck/internal/errs"
	"github.com/sells-group/mathcheck/internal/resilience"
)

// Adapter is the recognition boundary the pipeline sees. It never fails for a
// well-formed image: a live-capability failure (timeout, quota, network) is
// absorbed into FallbackFormula after the retry budget is spent, and logged so
// fallback results stay distinguishable from genuine ones in telemetry.
type Adapter struct {
	live    Recognizer // nil when provider is "fallback"
	timeout time.Duration
	retry   resilience.RetryConfig
	limiter *rate.Limiter
}

// NewAdapter builds the adapter for the configured provider.
func NewAdapter(cfg config.AdapterConfig, mathpix config.MathpixConfig) (*Adapter, error) {
	live, err := newRecognizer(cfg, mathpix)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retry := resilience.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 5
	}

	return &Adapter{
		live:    live,
		timeout: timeout,
		retry:   retry,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// Recognize returns the candidate formula for an image. The second return
// value reports whether the result came from the fallback path.
func (a *Adapter) Recognize(ctx context.Context, image []byte) (formula string, fallback bool) {
	if a.live == nil {
		return FallbackFormula, true
	}

	if err := a.limiter.Wait(ctx); err != nil {
		a.logFailure(errs.NewCapability("recognize", err))
		return FallbackFormula, true
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (string, error) {
		return a.live.Recognize(ctx, image)
	})
	if err != nil {
		a.logFailure(errs.NewCapability("recognize", err))
		return FallbackFormula, true
	}

	return result, false
}

func (a *Adapter) logFailure(err error) {
	zap.L().Warn("recognition capability failed, using fallback formula",
		zap.Error(err))
}
