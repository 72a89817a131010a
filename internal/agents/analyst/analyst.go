// Package analyst collects one MarketRecord per symbol: company profile,
// price, key ratios, recent headlines and a short generated analysis.
package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/FinSim/internal/dataflows"
	"github.com/dyike/FinSim/internal/llm"
	"github.com/dyike/FinSim/internal/pricing"
	"github.com/dyike/FinSim/internal/utils"
	"github.com/dyike/FinSim/models"
)

// Research is the company data the analyst reads. *dataflows.FinnhubClient
// satisfies it.
type Research interface {
	Profile(ctx context.Context, symbol string) (dataflows.CompanyProfile, error)
	BasicFinancials(ctx context.Context, symbol string) (map[string]any, error)
	CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]dataflows.NewsItem, error)
}

var ErrNoPrice = errors.New("no price available")

// KeyMetrics are the ratios kept from the provider's metric map.
var KeyMetrics = []string{
	"peNormalizedAnnual",
	"peTTM",
	"epsTTM",
	"totalDebt/totalEquityAnnual",
	"roeTTM",
	"netProfitMarginTTM",
	"dividendYieldIndicatedAnnual",
	"52WeekHigh",
	"52WeekLow",
	"beta",
}

const (
	newsWindow   = 7 * 24 * time.Hour
	maxHeadlines = 5
)

type Analyst struct {
	research Research
	prices   pricing.Lookup
	gen      llm.Generator
	now      func() time.Time
	log      zerolog.Logger
}

type Option func(*Analyst)

func WithLogger(l zerolog.Logger) Option {
	return func(a *Analyst) { a.log = l.With().Str("component", "market_analyst").Logger() }
}

func WithNow(now func() time.Time) Option { return func(a *Analyst) { a.now = now } }

func New(research Research, prices pricing.Lookup, gen llm.Generator, opts ...Option) *Analyst {
	a := &Analyst{research: research, prices: prices, gen: gen, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze builds the record for symbol. Rate-limit errors are returned
// unchanged so callers can detect them with IsRateLimited. Missing news or
// ratios degrade the record instead of failing it.
func (a *Analyst) Analyze(ctx context.Context, symbol string) (models.MarketRecord, error) {
	symbol = dataflows.NormalizeSymbol(symbol)
	rec := models.MarketRecord{Symbol: symbol, Company: symbol}

	profile, err := a.research.Profile(ctx, symbol)
	if err != nil {
		if IsRateLimited(err) {
			return rec, err
		}
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("company profile unavailable")
	} else if profile.Name != "" {
		rec.Company = profile.Name
	}

	price, ok := a.prices.Price(ctx, symbol)
	if !ok {
		return rec, fmt.Errorf("%s: %w", symbol, ErrNoPrice)
	}
	rec.Price = price

	metrics, err := a.research.BasicFinancials(ctx, symbol)
	if err != nil {
		if IsRateLimited(err) {
			return rec, err
		}
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("financial metrics unavailable")
	}
	rec.Financials = keyMetrics(metrics)

	now := a.now()
	news, err := a.research.CompanyNews(ctx, symbol, now.Add(-newsWindow), now)
	if err != nil {
		if IsRateLimited(err) {
			return rec, err
		}
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("company news unavailable")
	}

	financials, _ := json.Marshal(rec.Financials)
	prompt := utils.MustPrompt("market_analyst", map[string]string{
		"Company":    rec.Company,
		"Symbol":     symbol,
		"Price":      fmt.Sprintf("%.2f", price),
		"Financials": string(financials),
		"News":       headlines(news),
	})
	analysis, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return rec, fmt.Errorf("analyze %s: %w", symbol, err)
	}
	rec.Analysis = analysis
	return rec, nil
}

// IsRateLimited reports a 429 from either the data provider or the model.
func IsRateLimited(err error) bool {
	return dataflows.IsRateLimited(err) || llm.IsRateLimited(err)
}

func keyMetrics(all map[string]any) map[string]any {
	out := make(map[string]any, len(KeyMetrics))
	for _, k := range KeyMetrics {
		if v, ok := all[k]; ok && v != nil {
			out[k] = v
		}
	}
	return out
}

func headlines(news []dataflows.NewsItem) string {
	if len(news) == 0 {
		return "- No recent headlines."
	}
	var b strings.Builder
	for i, n := range news {
		if i == maxHeadlines {
			break
		}
		fmt.Fprintf(&b, "- %s (%s)\n", n.Headline, n.Source)
	}
	return strings.TrimRight(b.String(), "\n")
}
