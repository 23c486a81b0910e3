package verify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/mathcheck/internal/config"
	"github.com/sells-group/mathcheck/internal/errs"
	"github.com/sells-group/mathcheck/internal/model"
	"github.com/sells-group/mathcheck/internal/resilience"
)

// Adapter is the verification boundary the pipeline sees. It never fails: a
// live-capability failure is absorbed into FallbackVerdict after the retry
// budget is spent, and logged so fallback verdicts stay distinguishable from
// genuine ones in telemetry.
type Adapter struct {
	live    Verifier // nil when provider is "fallback"
	timeout time.Duration
	retry   resilience.RetryConfig
	limiter *rate.Limiter
}

// NewAdapter builds the adapter for the configured provider.
func NewAdapter(cfg config.AdapterConfig, anthropicCfg config.AnthropicConfig) (*Adapter, error) {
	live, err := newVerifier(cfg, anthropicCfg)
	if err != nil {
		return nil, err
	}
	return newAdapterWith(live, cfg), nil
}

func newAdapterWith(live Verifier, cfg config.AdapterConfig) *Adapter {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retry := resilience.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 2
	}

	return &Adapter{
		live:    live,
		timeout: timeout,
		retry:   retry,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Verify returns the verdict for a (formula, solution) pair. On capability
// failure the fixed fallback verdict is returned; the caller-facing shape
// never changes.
func (a *Adapter) Verify(ctx context.Context, formula, solution string) *model.Verdict {
	if a.live == nil {
		return FallbackVerdict()
	}

	if err := a.limiter.Wait(ctx); err != nil {
		a.logFailure(errs.NewCapability("verify", err))
		return FallbackVerdict()
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	verdict, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*model.Verdict, error) {
		return a.live.Verify(ctx, formula, solution)
	})
	if err != nil {
		a.logFailure(errs.NewCapability("verify", err))
		return FallbackVerdict()
	}

	return verdict
}

func (a *Adapter) logFailure(err error) {
	zap.L().Warn("verification capability failed, using fallback verdict",
		zap.Error(err))
}
