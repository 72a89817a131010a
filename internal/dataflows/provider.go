package dataflows

import (
	"fmt"

	"github.com/dyike/FinSim/config"
)

// NewQuoteSource returns the quote provider selected by configuration.
func NewQuoteSource(cfg *config.Config) (QuoteSource, error) {
	switch cfg.QuoteProvider {
	case config.QuoteFinnhub:
		return NewFinnhubClient(cfg.FinnhubAPIKey, ""), nil
	case config.QuoteYahoo:
		return NewYahooClient(), nil
	case config.QuoteLongport:
		lp, err := NewLongportClient(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken)
		if err != nil {
			return nil, err
		}
		return lp, nil
	default:
		return nil, fmt.Errorf("unsupported quote provider %q", cfg.QuoteProvider)
	}
}
