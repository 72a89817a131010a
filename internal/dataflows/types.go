package dataflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dyike/FinSim/models"
)

// QuoteSource returns the latest quote for a symbol.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	Name() string
}

// CompanyProfile is the subset of issuer metadata the analyst uses.
type CompanyProfile struct {
	Name      string  `json:"name"`
	Ticker    string  `json:"ticker"`
	Industry  string  `json:"finnhubIndustry"`
	MarketCap float64 `json:"marketCapitalization"`
	Exchange  string  `json:"exchange"`
	WebURL    string  `json:"weburl"`
}

type NewsItem struct {
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

var (
	ErrNoAPIKey    = errors.New("api key not configured")
	ErrNoQuote     = errors.New("no quote available")
	ErrBadResponse = errors.New("unexpected provider response")
)

// RateLimitError reports an HTTP 429 from a market data provider.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limit exceeded (429), retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limit exceeded (429)", e.Provider)
}

// IsRateLimited reports whether err came from a provider 429.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	return strings.Contains(err.Error(), "429")
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
