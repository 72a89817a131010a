package dataflows

import (
	"context"
	"fmt"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"

	"github.com/dyike/FinSim/models"
)

// YahooClient reads quotes through finance-go. The library has no context
// support; ctx is only checked before the call.
type YahooClient struct {
	get func(symbol string) (*finance.Quote, error)
}

func NewYahooClient() *YahooClient {
	return &YahooClient{get: quote.Get}
}

func (yc *YahooClient) Name() string { return "yahoo" }

func (yc *YahooClient) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return models.Quote{}, err
	}
	symbol = NormalizeSymbol(symbol)
	q, err := yc.get(symbol)
	if err != nil {
		return models.Quote{}, fmt.Errorf("yahoo quote %s: %w", symbol, err)
	}
	if q == nil || q.RegularMarketPrice <= 0 {
		return models.Quote{}, fmt.Errorf("yahoo %s: %w", symbol, ErrNoQuote)
	}
	return models.Quote{
		Symbol:        symbol,
		Open:          q.RegularMarketOpen,
		High:          q.RegularMarketDayHigh,
		Low:           q.RegularMarketDayLow,
		Current:       q.RegularMarketPrice,
		PreviousClose: q.RegularMarketPreviousClose,
	}, nil
}

// CompanyName returns the short name Yahoo reports for symbol.
func (yc *YahooClient) CompanyName(symbol string) string {
	q, err := yc.get(NormalizeSymbol(symbol))
	if err != nil || q == nil {
		return ""
	}
	return q.ShortName
}
