package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyike/FinSim/consts"
	"github.com/dyike/FinSim/internal/pricing"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/numeric"
)

var (
	ErrMissingField     = errors.New("missing required field")
	ErrSymbolNotAllowed = errors.New("symbol not in allowed universe")
	ErrNoPrice          = errors.New("no valid price")
	ErrBadQuantity      = errors.New("quantity must be positive")
	ErrBadScore         = errors.New("score must be between 0 and 100")
	ErrBadAction        = errors.New("action must be Buy or Sell")
	ErrBadSentiment     = errors.New("news sentiment must be Positive, Negative or Neutral")
)

// RejectionReason maps a validation error to a short metric label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrSymbolNotAllowed):
		return "symbol_not_allowed"
	case errors.Is(err, ErrNoPrice):
		return "no_price"
	case errors.Is(err, ErrBadQuantity):
		return "bad_quantity"
	case errors.Is(err, ErrBadScore):
		return "bad_score"
	case errors.Is(err, ErrBadAction):
		return "bad_action"
	case errors.Is(err, ErrBadSentiment):
		return "bad_sentiment"
	default:
		return "other"
	}
}

// ValidateAndRepair checks one generated candidate and, when its cost
// exceeds budget, shrinks the quantity to fit. The returned candidate has
// numeric fields coerced and CurrentPrice taken from prices.
func ValidateAndRepair(ctx context.Context, raw map[string]any, budget float64, prices pricing.Lookup) (models.TradeCandidate, error) {
	for _, field := range models.CandidateFields {
		if v, ok := raw[field]; !ok || v == nil {
			return models.TradeCandidate{}, fmt.Errorf("%w: %s", ErrMissingField, field)
		}
	}

	symbol := strings.TrimSpace(text(raw["Symbol"]))
	if !consts.IsAllowed(symbol) {
		return models.TradeCandidate{}, fmt.Errorf("%w: %q", ErrSymbolNotAllowed, symbol)
	}

	price, ok := prices.Price(ctx, symbol)
	if !ok || price <= 0 {
		return models.TradeCandidate{}, fmt.Errorf("%w for %s", ErrNoPrice, symbol)
	}

	quantity := numeric.ToFloat(raw["Quantity"])
	if quantity <= 0 {
		return models.TradeCandidate{}, fmt.Errorf("%w: %s has %v", ErrBadQuantity, symbol, raw["Quantity"])
	}

	c := Repair(models.TradeCandidate{
		Symbol:        symbol,
		Company:       text(raw["Company"]),
		Action:        text(raw["Action"]),
		Quantity:      quantity,
		CurrentPrice:  price,
		Reason:        text(raw["Reason"]),
		Caution:       text(raw["Caution"]),
		NewsSentiment: text(raw["NewsSentiment"]),
	}, budget)

	score, ok := numeric.Parse(raw["Score"])
	if !ok || score < 0 || score > 100 {
		return models.TradeCandidate{}, fmt.Errorf("%w: %s has %v", ErrBadScore, symbol, raw["Score"])
	}
	c.Score = score
	if !models.OneOf(c.Action, models.TradeActions) {
		return models.TradeCandidate{}, fmt.Errorf("%w: %s has %q", ErrBadAction, symbol, c.Action)
	}
	if !models.OneOf(c.NewsSentiment, models.Sentiments) {
		return models.TradeCandidate{}, fmt.Errorf("%w: %s has %q", ErrBadSentiment, symbol, c.NewsSentiment)
	}
	return c, nil
}

// Repair truncates the quantity to two decimals so that
// Quantity*CurrentPrice does not exceed budget, and recomputes TotalCost.
// It is idempotent.
func Repair(c models.TradeCandidate, budget float64) models.TradeCandidate {
	if c.CurrentPrice > 0 && c.Quantity*c.CurrentPrice > budget {
		c.Quantity = numeric.FloorTo(numeric.SafeOp(budget, c.CurrentPrice, numeric.Divide), 2)
	}
	c.TotalCost = numeric.SafeOp(c.Quantity, c.CurrentPrice, numeric.Multiply)
	return c
}

func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
