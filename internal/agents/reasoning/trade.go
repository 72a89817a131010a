package reasoning

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dyike/FinSim/consts"
	"github.com/dyike/FinSim/internal/utils"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/extract"
)

// ValidateTrade reviews one trade. Symbol, price and budget are checked
// before any generation call; the budget check is repeated afterwards and
// overrides the model's verdict.
func (a *Agent) ValidateTrade(ctx context.Context, c models.TradeCandidate, profile models.InvestmentProfile) (v models.ValidationVerdict) {
	trace := models.NewReasoningTrace()
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Msg("trade validation failed")
			v = models.RejectedVerdict(fmt.Sprintf("Validation failed: %v", r), trace)
		}
	}()

	if !consts.IsAllowed(c.Symbol) {
		return models.RejectedVerdict(fmt.Sprintf("Invalid stock symbol: %s is not in the allowed list", c.Symbol), trace)
	}
	price, ok := a.prices.Price(ctx, c.Symbol)
	if !ok || price <= 0 {
		return models.RejectedVerdict(fmt.Sprintf("Could not get valid price for %s", c.Symbol), trace)
	}

	budget := profile.InvestmentAmount
	if budget <= 0 {
		budget = math.Inf(1)
	}
	isBuy := strings.EqualFold(c.Action, models.ActionBuy)
	if total := price * c.Quantity; isBuy && total > budget {
		return models.RejectedVerdict(overBudget(total, budget), trace)
	}

	trace.Add("Performing comprehensive trade validation...")
	c.CurrentPrice = price
	c.TotalCost = price * c.Quantity
	prompt := utils.MustPrompt("trade_validation", map[string]string{
		"Trade":                 indentJSON(c),
		"Preferences":           indentJSON(profile.ToMap()),
		"AllowedSymbols":        indentJSON(consts.AllowedSymbols),
		"AdditionalPreferences": profile.AdditionalPreferences,
	})
	reply, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.log.Error().Err(err).Str("symbol", c.Symbol).Msg("trade validation failed")
		return models.RejectedVerdict(fmt.Sprintf("Validation failed: %v", err), trace)
	}

	result := extract.Structured(reply)
	validation := extract.Map(extract.Map(result, "validation"), "validation_result")
	mods := extract.Map(validation, "modifications")
	execution := extract.Map(extract.Map(result, "execution"), "execution_strategy")
	risk := extract.Map(execution, "risk_management")

	v = models.ValidationVerdict{
		IsValid:        extract.Bool(validation, "is_valid"),
		Confidence:     extract.String(validation, "confidence", "N/A"),
		PrimaryReasons: extract.Strings(validation, "primary_reasons", nil),
		Concerns:       extract.Strings(validation, "concerns", nil),
		Modifications: models.Modifications{
			Quantity:   extract.String(mods, "quantity", "No suggestion"),
			Timing:     extract.String(mods, "timing", "No suggestion"),
			Conditions: extract.Strings(mods, "conditions", nil),
		},
		Execution: models.ExecutionPlan{
			EntryPoints: extract.Strings(execution, "entry_points", []string{"Not specified"}),
			ExitPoints:  extract.Strings(execution, "exit_points", nil),
			Monitoring:  extract.Strings(execution, "monitoring", []string{"None specified"}),
			RiskManagement: models.RiskManagement{
				StopLoss:       extract.String(risk, "stop_loss", "Not specified"),
				TakeProfit:     extract.String(risk, "take_profit", "Not specified"),
				PositionSizing: extract.String(risk, "position_sizing", "Not specified"),
			},
		},
		Trace: trace,
	}

	if v.IsValid && isBuy {
		if latest, ok := a.prices.Price(ctx, c.Symbol); ok && latest > 0 {
			price = latest
		}
		if total := price * c.Quantity; total > budget {
			v.IsValid = false
			v.Concerns = append(v.Concerns, overBudget(total, budget))
		}
	}

	v.Explanation = explain(v)
	trace.Add(v.Explanation)
	trace.Add("Completed comprehensive trade validation")
	trace.Add("Analyzed risk and market conditions")
	if v.IsValid {
		trace.Add("Generated execution strategy")
	} else {
		trace.Add("Identified validation issues")
	}
	return v
}

func overBudget(total, budget float64) string {
	return fmt.Sprintf("Total cost ($%.2f) exceeds investment amount ($%.2f)", total, budget)
}

func explain(v models.ValidationVerdict) string {
	var b strings.Builder
	if v.IsValid {
		fmt.Fprintf(&b, "Trade Validation Summary:\n")
		fmt.Fprintf(&b, "• Confidence: %s/100\n", v.Confidence)
		fmt.Fprintf(&b, "• Primary Reasons: %s\n", strings.Join(v.PrimaryReasons, ", "))
		fmt.Fprintf(&b, "• Key Concerns: %s\n\n", strings.Join(v.Concerns, ", "))
		fmt.Fprintf(&b, "Execution Strategy:\n")
		fmt.Fprintf(&b, "• Entry Points: %s\n", strings.Join(v.Execution.EntryPoints, ", "))
		fmt.Fprintf(&b, "• Stop Loss: %s\n", v.Execution.RiskManagement.StopLoss)
		fmt.Fprintf(&b, "• Take Profit: %s\n", v.Execution.RiskManagement.TakeProfit)
		fmt.Fprintf(&b, "• Monitoring Points: %s", strings.Join(v.Execution.Monitoring, ", "))
		return b.String()
	}

	reasons := v.PrimaryReasons
	if len(reasons) == 0 {
		reasons = []string{"Invalid trade"}
	}
	fmt.Fprintf(&b, "Trade Rejected:\n")
	fmt.Fprintf(&b, "• Reasons: %s\n", strings.Join(reasons, ", "))
	fmt.Fprintf(&b, "• Suggested Changes:\n")
	fmt.Fprintf(&b, "  - Quantity: %s\n", v.Modifications.Quantity)
	fmt.Fprintf(&b, "  - Timing: %s\n", v.Modifications.Timing)
	fmt.Fprintf(&b, "• Key Concerns: %s", strings.Join(v.Concerns, ", "))
	return b.String()
}
