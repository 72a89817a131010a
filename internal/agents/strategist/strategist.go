// Package strategist turns a market snapshot and a profile into at most
// three scored trade candidates with a single generation call per attempt.
package strategist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/FinSim/config"
	"github.com/dyike/FinSim/consts"
	"github.com/dyike/FinSim/internal/agents/reasoning"
	"github.com/dyike/FinSim/internal/llm"
	"github.com/dyike/FinSim/internal/pricing"
	"github.com/dyike/FinSim/internal/utils"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/extract"
	"github.com/dyike/FinSim/pkg/metrics"
	"github.com/dyike/FinSim/pkg/numeric"
	"github.com/dyike/FinSim/pkg/retry"
)

var (
	ErrNoList      = errors.New("response is not a JSON list")
	ErrInvalidItem = errors.New("invalid recommendation")
	ErrNoneValid   = errors.New("no valid recommendations")
)

const (
	maxAttempts    = 3
	rateLimitDelay = 10 * time.Second
	malformedDelay = 5 * time.Second
)

// StrategyActions are the actions accepted in reject mode.
var StrategyActions = []string{models.ActionBuy, models.ActionSell, models.ActionHold}

type Strategist struct {
	gen     llm.Generator
	mode    string
	policy  retry.Policy
	metrics *metrics.Collector
	log     zerolog.Logger
}

type Option func(*Strategist)

// WithMode selects config.StrategistModeReject or config.StrategistModeRepair.
func WithMode(mode string) Option { return func(s *Strategist) { s.mode = mode } }

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Strategist) { s.policy.Sleep = sleep }
}

func WithMetrics(c *metrics.Collector) Option { return func(s *Strategist) { s.metrics = c } }

func WithLogger(l zerolog.Logger) Option {
	return func(s *Strategist) { s.log = l.With().Str("component", "strategist").Logger() }
}

func New(gen llm.Generator, opts ...Option) *Strategist {
	s := &Strategist{
		gen:    gen,
		mode:   config.StrategistModeReject,
		policy: Policy(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy is three attempts, waiting 10s·2ⁿ after a rate limit and 5s·2ⁿ
// after any other failure. A rate limit that already exhausted the
// generator's own backoff is final.
func Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   malformedDelay,
		Multiplier:  2,
		Retryable: func(err error) bool {
			return !(llm.IsRateLimited(err) && errors.Is(err, retry.ErrExhausted))
		},
		DelayFor: func(err error, attempt int) time.Duration {
			base := malformedDelay
			if llm.IsRateLimited(err) {
				base = rateLimitDelay
			}
			return base << attempt
		},
	}
}

func (s *Strategist) Mode() string { return s.mode }

// Recommend never fails; exhausted attempts give an Empty result.
func (s *Strategist) Recommend(ctx context.Context, profile models.InvestmentProfile, snapshot models.MarketSnapshot) models.Recommendations {
	usable := usableRecords(snapshot)
	if len(usable) == 0 {
		s.log.Warn().Int("records", len(snapshot)).Msg("no tradeable market data for strategist")
		return models.EmptyRecommendations("no market data for tradeable symbols")
	}
	prompt := s.prompt(profile, usable)

	var picked []models.TradeCandidate
	policy := s.policy
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		s.log.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("strategist attempt failed")
	}
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		reply, err := s.gen.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		picked, err = s.parse(ctx, reply, profile, usable)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Str("mode", s.mode).Msg("strategist gave up")
		s.metrics.Candidates("strategist", 0)
		return models.EmptyRecommendations(err.Error())
	}
	s.metrics.Candidates("strategist", len(picked))
	return models.OkRecommendations(picked)
}

func (s *Strategist) parse(ctx context.Context, reply string, profile models.InvestmentProfile, snapshot models.MarketSnapshot) ([]models.TradeCandidate, error) {
	items, ok := extract.List(reply)
	if !ok {
		return nil, ErrNoList
	}

	var out []models.TradeCandidate
	if s.mode == config.StrategistModeRepair {
		prices := pricing.LookupFunc(func(_ context.Context, symbol string) (float64, bool) {
			return snapshot.Price(symbol)
		})
		for _, item := range items {
			raw, ok := item.(map[string]any)
			if !ok {
				s.metrics.Rejection("malformed")
				continue
			}
			c, err := reasoning.ValidateAndRepair(ctx, raw, profile.InvestmentAmount, prices)
			if err != nil {
				s.log.Warn().Err(err).Msg("dropping candidate")
				s.metrics.Rejection(reasoning.RejectionReason(err))
				continue
			}
			out = append(out, c)
		}
		if len(out) == 0 {
			return nil, ErrNoneValid
		}
	} else {
		symbols := snapshot.Symbols()
		for i, item := range items {
			c, err := strict(item, symbols, snapshot)
			if err != nil {
				s.metrics.Rejection("strict")
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, c)
		}
	}
	return top(out, consts.MaxCandidates), nil
}

// strict accepts an item only when every field is present and well formed.
func strict(item any, symbols []string, snapshot models.MarketSnapshot) (models.TradeCandidate, error) {
	raw, ok := item.(map[string]any)
	if !ok {
		return models.TradeCandidate{}, fmt.Errorf("%w: not an object", ErrInvalidItem)
	}
	for _, field := range models.CandidateFields {
		if _, ok := raw[field]; !ok {
			return models.TradeCandidate{}, fmt.Errorf("%w: missing %s", ErrInvalidItem, field)
		}
	}
	symbol, _ := raw["Symbol"].(string)
	if !models.OneOf(symbol, symbols) {
		return models.TradeCandidate{}, fmt.Errorf("%w: symbol %q not in market data", ErrInvalidItem, symbol)
	}
	action, _ := raw["Action"].(string)
	if !models.OneOf(action, StrategyActions) {
		return models.TradeCandidate{}, fmt.Errorf("%w: action %q", ErrInvalidItem, action)
	}
	qty, ok := raw["Quantity"].(float64)
	if !ok || qty < 0 || qty != math.Trunc(qty) {
		return models.TradeCandidate{}, fmt.Errorf("%w: quantity %v", ErrInvalidItem, raw["Quantity"])
	}
	score, ok := raw["Score"].(float64)
	if !ok || score < 0 || score > 100 {
		return models.TradeCandidate{}, fmt.Errorf("%w: score %v", ErrInvalidItem, raw["Score"])
	}

	c := models.TradeCandidate{
		Symbol:        symbol,
		Company:       str(raw["Company"]),
		Action:        action,
		Quantity:      qty,
		Reason:        str(raw["Reason"]),
		Caution:       str(raw["Caution"]),
		NewsSentiment: str(raw["NewsSentiment"]),
		Score:         score,
	}
	if price, ok := snapshot.Price(symbol); ok {
		c.CurrentPrice = price
		c.TotalCost = numeric.SafeOp(qty, price, numeric.Multiply)
	}
	return c, nil
}

// top sorts by score, highest first, and keeps n. Ties keep input order.
func top(c []models.TradeCandidate, n int) []models.TradeCandidate {
	sort.SliceStable(c, func(i, j int) bool { return c[i].Score > c[j].Score })
	if len(c) > n {
		c = c[:n]
	}
	return c
}

func (s *Strategist) prompt(profile models.InvestmentProfile, snapshot models.MarketSnapshot) string {
	prefs, _ := json.Marshal(profile.ToMap())
	data, _ := json.Marshal(snapshot)
	return utils.MustPrompt("strategist", map[string]string{
		"Preferences": string(prefs),
		"MarketData":  string(data),
		"Symbols":     strings.Join(snapshot.Symbols(), ", "),
	})
}

// usableRecords keeps the records that loaded and whose symbol may be
// traded. The scan list reaches beyond the tradeable universe.
func usableRecords(snapshot models.MarketSnapshot) models.MarketSnapshot {
	out := make(models.MarketSnapshot, 0, len(snapshot))
	for _, r := range snapshot {
		if r.Err == "" && consts.IsAllowed(r.Symbol) {
			out = append(out, r)
		}
	}
	return out
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
