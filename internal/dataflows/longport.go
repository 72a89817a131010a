package dataflows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"

	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/numeric"
)

type LongportClient struct {
	quoteCtx *quote.QuoteContext
}

func NewLongportClient(appKey, appSecret, accessToken string) (*LongportClient, error) {
	if appKey == "" || appSecret == "" || accessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(appKey, appSecret, accessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{quoteCtx: quoteContext}, nil
}

func (lpc *LongportClient) Name() string { return "longport" }

// Quote maps a US ticker to its Longport symbol and returns the last trade.
func (lpc *LongportClient) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	if lpc.quoteCtx == nil {
		return models.Quote{}, errors.New("quote context is nil")
	}
	symbol = NormalizeSymbol(symbol)
	quotes, err := lpc.quoteCtx.Quote(ctx, []string{longportSymbol(symbol)})
	if err != nil {
		return models.Quote{}, fmt.Errorf("longport quote %s: %w", symbol, err)
	}
	if len(quotes) == 0 || quotes[0] == nil {
		return models.Quote{}, fmt.Errorf("longport %s: %w", symbol, ErrNoQuote)
	}
	q := quotes[0]
	out := models.Quote{
		Symbol:        symbol,
		Open:          numeric.ToFloat(q.Open),
		High:          numeric.ToFloat(q.High),
		Low:           numeric.ToFloat(q.Low),
		Current:       numeric.ToFloat(q.LastDone),
		PreviousClose: numeric.ToFloat(q.PrevClose),
	}
	if out.Current <= 0 {
		return models.Quote{}, fmt.Errorf("longport %s: %w", symbol, ErrNoQuote)
	}
	return out, nil
}

func longportSymbol(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".US"
}
