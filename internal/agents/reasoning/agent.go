// Package reasoning generates budget-bounded trade recommendations and
// reviews single trades before execution.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dyike/FinSim/consts"
	"github.com/dyike/FinSim/internal/llm"
	"github.com/dyike/FinSim/internal/pricing"
	"github.com/dyike/FinSim/internal/utils"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/extract"
	"github.com/dyike/FinSim/pkg/metrics"
)

const (
	TechnicalFailure = "Analysis failed due to technical issues."
	NoInsights       = "Analysis failed to generate insights."
	NoValidCandidate = "Failed to generate valid recommendation"
)

type Agent struct {
	gen     llm.Generator
	prices  pricing.Lookup
	metrics *metrics.Collector
	log     zerolog.Logger
}

type Option func(*Agent)

func WithMetrics(c *metrics.Collector) Option { return func(a *Agent) { a.metrics = c } }

func WithLogger(l zerolog.Logger) Option {
	return func(a *Agent) { a.log = l.With().Str("component", "reasoning").Logger() }
}

func New(gen llm.Generator, prices pricing.Lookup, opts ...Option) *Agent {
	a := &Agent{gen: gen, prices: prices, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Recommend asks for up to three candidates in one combined request and keeps
// the highest-scored ones that survive ValidateAndRepair.
func (a *Agent) Recommend(ctx context.Context, profile models.InvestmentProfile) (models.Recommendations, string, *models.ReasoningTrace) {
	trace := models.NewReasoningTrace()
	budget := profile.InvestmentAmount
	trace.Addf("Investment amount specified: $%.2f", budget)

	reply, err := a.gen.Generate(ctx, a.recommendationPrompt(profile))
	if err != nil {
		a.log.Error().Err(err).Msg("reasoning analysis failed")
		return models.EmptyRecommendations(TechnicalFailure), TechnicalFailure, trace
	}

	analysis := extract.Structured(reply)
	insights := extract.String(analysis, "insights", NoInsights)
	raw, _ := analysis["recommendations"].([]any)

	var candidates []models.TradeCandidate
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			a.log.Warn().Interface("item", item).Msg("skipping malformed recommendation")
			a.metrics.Rejection("malformed")
			continue
		}
		c, err := ValidateAndRepair(ctx, m, budget, a.prices)
		if err != nil {
			a.log.Warn().Err(err).Msg("skipping invalid recommendation")
			a.metrics.Rejection(RejectionReason(err))
			continue
		}
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > consts.MaxCandidates {
		candidates = candidates[:consts.MaxCandidates]
	}
	a.metrics.Candidates("generator", len(candidates))

	trace.Add("Completed initial preference and risk assessment")
	trace.Add("Analyzed market conditions and sector performance")
	trace.Addf("Generated %d validated recommendations", len(candidates))
	for _, c := range candidates {
		trace.Add(c.Summary())
	}
	trace.Add("Validated investment amounts and share quantities")
	trace.Add("Compiled final market insights and guidance")

	if len(candidates) == 0 {
		explain := fmt.Sprintf("%s: none of the %d proposed trades fit the allowed symbols and a $%.2f budget. Please try again.", NoValidCandidate, len(raw), budget)
		if insights != NoInsights {
			explain += "\n\n" + insights
		}
		return models.EmptyRecommendations(NoValidCandidate), explain, trace
	}
	return models.OkRecommendations(candidates), insights, trace
}

func (a *Agent) recommendationPrompt(p models.InvestmentProfile) string {
	return utils.MustPrompt("recommendation", map[string]string{
		"Preferences":           indentJSON(p.ToMap()),
		"Budget":                fmt.Sprintf("%.2f", p.InvestmentAmount),
		"AllowedSymbols":        strings.Join(consts.AllowedSymbols, ", "),
		"AdditionalPreferences": p.AdditionalPreferences,
		"InvestmentStyle":       orDefault(p.InvestmentStyle, "balanced"),
		"InvestmentGoals":       orDefault(p.InvestmentGoals, models.GoalGrowth),
		"RiskAppetite":          orDefault(p.RiskAppetite, models.RiskMedium),
	})
}

// MarketConditions returns a market sentiment overview.
func (a *Agent) MarketConditions(ctx context.Context) map[string]any {
	reply, err := a.gen.Generate(ctx, utils.MustPrompt("market_conditions", nil))
	if err != nil {
		a.log.Error().Err(err).Msg("market analysis failed")
		return map[string]any{
			"error":   "Failed to analyze market conditions",
			"details": err.Error(),
		}
	}
	return extract.Structured(reply)
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
