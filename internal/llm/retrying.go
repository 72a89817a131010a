package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/FinSim/config"
	"github.com/dyike/FinSim/pkg/metrics"
	"github.com/dyike/FinSim/pkg/retry"
)

// RetryingGenerator applies one retry policy around every generation call.
// Only rate-limit failures are retried; the policy doubles the delay per attempt.
type RetryingGenerator struct {
	inner   Generator
	policy  retry.Policy
	metrics *metrics.Collector
	log     zerolog.Logger
}

type Option func(*RetryingGenerator)

func WithMetrics(c *metrics.Collector) Option {
	return func(g *RetryingGenerator) { g.metrics = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *RetryingGenerator) { g.log = l.With().Str("component", "llm").Logger() }
}

// Policy derives the generation retry policy from configuration.
func Policy(cfg *config.Config) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg.LLMMaxAttempts > 0 {
		p.MaxAttempts = cfg.LLMMaxAttempts
	}
	if cfg.LLMBaseDelay > 0 {
		p.BaseDelay = cfg.LLMBaseDelay
	}
	p.MaxDelay = 2 * time.Minute
	return p
}

func NewRetryingGenerator(inner Generator, policy retry.Policy, opts ...Option) *RetryingGenerator {
	g := &RetryingGenerator{
		inner:  inner,
		policy: policy,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.policy.Retryable = IsRateLimited
	g.policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		g.metrics.LLMRetry()
		g.log.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("rate limited, backing off")
	}
	return g
}

func (g *RetryingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := retry.Do(ctx, g.policy, func(ctx context.Context) error {
		text, err := g.inner.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	switch {
	case err == nil:
		g.metrics.LLMCall("ok")
	case IsRateLimited(err):
		g.metrics.LLMCall("rate_limited")
	default:
		g.metrics.LLMCall("error")
	}
	if err != nil {
		return "", err
	}
	return out, nil
}
