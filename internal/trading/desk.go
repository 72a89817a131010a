// Package trading executes simulated trades for a signed-in session, either
// entered by hand or taken from the recommendation workflow.
package trading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dyike/FinSim/consts"
	"github.com/dyike/FinSim/internal/portfolio"
	"github.com/dyike/FinSim/internal/pricing"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/metrics"
	"github.com/dyike/FinSim/pkg/numeric"
)

var (
	ErrNotSignedIn        = errors.New("sign in to trade")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidType        = errors.New("trade type must be buy or sell")
	ErrSymbolNotAllowed   = errors.New("symbol is not tradeable")
	ErrNoPrice            = errors.New("could not get a valid price")
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrInsufficientShares = errors.New("not enough shares to sell")
	ErrNoRecommendation   = errors.New("no recommendation available")
	ErrNothingToExecute   = errors.New("recommendation is not a buy or sell")
)

// Ledger persists trades and balances.
type Ledger interface {
	AddTrade(ctx context.Context, t models.Trade) (models.User, error)
	Trades(ctx context.Context, userID, symbol string) ([]models.Trade, error)
}

// Recommender runs the recommendation workflow. *graph.Workflow satisfies it.
type Recommender interface {
	Run(ctx context.Context, profile models.InvestmentProfile, userID string) models.WorkflowResult
}

type Desk struct {
	ledger   Ledger
	prices   pricing.Lookup
	workflow Recommender
	now      func() time.Time
	newID    func() string
	metrics  *metrics.Collector
	log      zerolog.Logger
}

type Option func(*Desk)

func WithRecommender(r Recommender) Option { return func(d *Desk) { d.workflow = r } }

func WithNow(now func() time.Time) Option { return func(d *Desk) { d.now = now } }

func WithIDs(newID func() string) Option { return func(d *Desk) { d.newID = newID } }

func WithMetrics(c *metrics.Collector) Option { return func(d *Desk) { d.metrics = c } }

func WithLogger(l zerolog.Logger) Option {
	return func(d *Desk) { d.log = l.With().Str("component", "trading").Logger() }
}

func NewDesk(ledger Ledger, prices pricing.Lookup, opts ...Option) *Desk {
	d := &Desk{
		ledger: ledger,
		prices: prices,
		now:    time.Now,
		newID:  uuid.NewString,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Manual spends (buy) or raises (sell) amount dollars of symbol at the
// current price.
func (d *Desk) Manual(ctx context.Context, s *models.Session, symbol string, amount float64, kind string) (models.Trade, error) {
	if s == nil || !s.Authenticated {
		return models.Trade{}, ErrNotSignedIn
	}
	if amount <= 0 {
		return models.Trade{}, ErrInvalidAmount
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != models.TradeBuy && kind != models.TradeSell {
		return models.Trade{}, fmt.Errorf("%w: %q", ErrInvalidType, kind)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !consts.IsAllowed(symbol) {
		return models.Trade{}, fmt.Errorf("%w: %s", ErrSymbolNotAllowed, symbol)
	}
	if kind == models.TradeBuy && amount > s.Balance {
		return models.Trade{}, fmt.Errorf("%w: $%.2f available", ErrInsufficientFunds, s.Balance)
	}

	price, ok := d.prices.Price(ctx, symbol)
	if !ok || price <= 0 {
		return models.Trade{}, fmt.Errorf("%w for %s", ErrNoPrice, symbol)
	}
	quantity := numeric.Decimal(amount).DivRound(numeric.Decimal(price), 6).InexactFloat64()

	return d.execute(ctx, s, models.Trade{
		UserID:   s.UserID,
		Symbol:   symbol,
		Amount:   amount,
		Price:    price,
		Quantity: quantity,
		Type:     kind,
	})
}

// AgentResult is an executed recommendation.
type AgentResult struct {
	Candidate models.TradeCandidate
	Trade     models.Trade
}

// Agent runs the workflow for profile and executes its top candidate at
// the refreshed price.
func (d *Desk) Agent(ctx context.Context, s *models.Session, profile models.InvestmentProfile) (AgentResult, error) {
	if s == nil || !s.Authenticated {
		return AgentResult{}, ErrNotSignedIn
	}
	if d.workflow == nil {
		return AgentResult{}, ErrNoRecommendation
	}
	result := d.workflow.Run(ctx, profile, s.UserID)
	if len(result.Recommendations) == 0 {
		return AgentResult{}, ErrNoRecommendation
	}
	c := result.Recommendations[0]

	t, err := d.fromCandidate(ctx, s, c)
	if err != nil {
		return AgentResult{Candidate: c}, err
	}
	t, err = d.execute(ctx, s, t)
	return AgentResult{Candidate: c, Trade: t}, err
}

func (d *Desk) fromCandidate(ctx context.Context, s *models.Session, c models.TradeCandidate) (models.Trade, error) {
	if !consts.IsAllowed(c.Symbol) {
		return models.Trade{}, fmt.Errorf("%w: %s", ErrSymbolNotAllowed, c.Symbol)
	}
	var kind string
	switch c.Action {
	case models.ActionBuy:
		kind = models.TradeBuy
	case models.ActionSell:
		kind = models.TradeSell
	default:
		return models.Trade{}, fmt.Errorf("%w: %s %s", ErrNothingToExecute, c.Action, c.Symbol)
	}
	if c.Quantity <= 0 {
		return models.Trade{}, fmt.Errorf("%w: quantity %g", ErrInvalidAmount, c.Quantity)
	}

	price, ok := d.prices.Price(ctx, c.Symbol)
	if !ok || price <= 0 {
		price = c.CurrentPrice
	}
	if price <= 0 {
		return models.Trade{}, fmt.Errorf("%w for %s", ErrNoPrice, c.Symbol)
	}
	amount := numeric.Decimal(price).Mul(numeric.Decimal(c.Quantity)).Round(2).InexactFloat64()
	if kind == models.TradeBuy && amount > s.Balance {
		return models.Trade{}, fmt.Errorf("%w: need $%.2f, have $%.2f", ErrInsufficientFunds, amount, s.Balance)
	}
	return models.Trade{
		UserID:   s.UserID,
		Symbol:   c.Symbol,
		Amount:   amount,
		Price:    price,
		Quantity: c.Quantity,
		Type:     kind,
	}, nil
}

func (d *Desk) execute(ctx context.Context, s *models.Session, t models.Trade) (models.Trade, error) {
	if t.Type == models.TradeSell {
		held, err := d.held(ctx, s.UserID, t.Symbol)
		if err != nil {
			return models.Trade{}, err
		}
		if t.Quantity > held+1e-9 {
			return models.Trade{}, fmt.Errorf("%w: selling %g of %s, holding %g", ErrInsufficientShares, t.Quantity, t.Symbol, held)
		}
	}

	t.ID = d.newID()
	t.Timestamp = d.now().UTC()
	u, err := d.ledger.AddTrade(ctx, t)
	if err != nil {
		return models.Trade{}, fmt.Errorf("record trade: %w", err)
	}
	s.Balance = u.Balance
	d.metrics.Trade(t.Type)
	d.log.Info().Str("user", s.Username).Str("symbol", t.Symbol).Str("type", t.Type).
		Float64("quantity", t.Quantity).Float64("amount", t.Amount).Float64("balance", s.Balance).Msg("trade recorded")
	return t, nil
}

func (d *Desk) held(ctx context.Context, userID, symbol string) (float64, error) {
	trades, err := d.ledger.Trades(ctx, userID, symbol)
	if err != nil {
		return 0, fmt.Errorf("load holdings: %w", err)
	}
	for _, h := range portfolio.Aggregate(trades, d.log) {
		if h.Symbol == symbol {
			return h.Quantity, nil
		}
	}
	return 0, nil
}
