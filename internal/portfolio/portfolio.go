// Package portfolio folds the trade ledger into holdings and values them at
// current prices.
package portfolio

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/dyike/FinSim/internal/pricing"
	"github.com/dyike/FinSim/models"
)

const dust = 1e-9

// Aggregate replays trades in order. Buys add to cost basis; sells release
// cost at the average buy price and book the difference as realized P&L.
// A sell larger than the position is ignored.
func Aggregate(trades []models.Trade, log zerolog.Logger) []models.Holding {
	bySymbol := map[string]*models.Holding{}
	for _, t := range trades {
		h, ok := bySymbol[t.Symbol]
		if !ok {
			h = &models.Holding{Symbol: t.Symbol}
			bySymbol[t.Symbol] = h
		}
		switch t.Type {
		case models.TradeBuy:
			h.Quantity += t.Quantity
			h.TotalCost += t.Amount
		case models.TradeSell:
			if t.Quantity > h.Quantity+dust {
				log.Warn().Str("trade", t.ID).Str("symbol", t.Symbol).
					Float64("sell", t.Quantity).Float64("held", h.Quantity).Msg("skipping oversell")
				continue
			}
			released := h.AvgBuyPrice() * t.Quantity
			h.RealizedPnL += t.Amount - released
			h.TotalCost -= released
			h.Quantity -= t.Quantity
			if h.Quantity < dust {
				h.Quantity, h.TotalCost = 0, 0
			}
		}
	}

	out := make([]models.Holding, 0, len(bySymbol))
	for _, h := range bySymbol {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Summary is a valued portfolio.
type Summary struct {
	Lines         []models.PortfolioLine `json:"lines"`
	Cash          float64                `json:"cash"`
	CostBasis     float64                `json:"cost_basis"`
	MarketValue   float64                `json:"market_value"`
	UnrealizedPnL float64                `json:"unrealized_pnl"`
	RealizedPnL   float64                `json:"realized_pnl"`
}

// NetWorth is cash plus the value of open positions.
func (s Summary) NetWorth() float64 { return s.Cash + s.MarketValue }

// Value prices each open holding. Holdings without a price are valued at
// cost and flagged PriceKnown=false.
func Value(ctx context.Context, holdings []models.Holding, prices pricing.Lookup, cash float64) Summary {
	sum := Summary{Cash: cash}
	for _, h := range holdings {
		sum.RealizedPnL += h.RealizedPnL
		if h.Quantity <= 0 {
			continue
		}
		line := models.PortfolioLine{Holding: h, CurrentValue: h.TotalCost}
		if p, ok := prices.Price(ctx, h.Symbol); ok {
			line.PriceKnown = true
			line.CurrentPrice = p
			line.CurrentValue = p * h.Quantity
			line.UnrealizedPnL = line.CurrentValue - h.TotalCost
		}
		sum.Lines = append(sum.Lines, line)
		sum.CostBasis += h.TotalCost
		sum.MarketValue += line.CurrentValue
		sum.UnrealizedPnL += line.UnrealizedPnL
	}
	return sum
}

// History filters trades to one symbol, newest first.
func History(trades []models.Trade, symbol string) []models.Trade {
	var out []models.Trade
	for i := len(trades) - 1; i >= 0; i-- {
		if trades[i].Symbol == symbol {
			out = append(out, trades[i])
		}
	}
	return out
}
