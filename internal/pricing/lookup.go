// Package pricing answers "what is the current price of X" from a TTL cache,
// the stored quote table and a live quote provider, in that order.
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/FinSim/internal/dataflows"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/metrics"
	"github.com/dyike/FinSim/pkg/retry"
)

// Lookup returns a current price, or false when none is available.
// Implementations never return an error.
type Lookup interface {
	Price(ctx context.Context, symbol string) (float64, bool)
}

type LookupFunc func(ctx context.Context, symbol string) (float64, bool)

func (f LookupFunc) Price(ctx context.Context, symbol string) (float64, bool) {
	return f(ctx, symbol)
}

// Static is a fixed price table.
type Static map[string]float64

func (s Static) Price(_ context.Context, symbol string) (float64, bool) {
	p, ok := s[symbol]
	return p, ok && p > 0
}

// QuoteStore persists quotes between runs.
type QuoteStore interface {
	LatestQuote(ctx context.Context, symbol string) (models.Quote, time.Time, error)
	SaveQuote(ctx context.Context, q models.Quote, at time.Time) error
}

// ErrNotFound is returned by QuoteStore implementations with no row.
var ErrNotFound = errors.New("quote not found")

const DefaultFreshness = time.Hour

// Service chains cache, store and provider.
type Service struct {
	cache     *Cache
	store     QuoteStore
	source    dataflows.QuoteSource
	policy    retry.Policy
	freshness time.Duration
	now       func() time.Time
	metrics   *metrics.Collector
	log       zerolog.Logger
}

type Option func(*Service)

func WithStore(s QuoteStore) Option { return func(svc *Service) { svc.store = s } }

func WithSource(src dataflows.QuoteSource) Option {
	return func(svc *Service) { svc.source = src }
}

func WithRetryPolicy(p retry.Policy) Option { return func(svc *Service) { svc.policy = p } }

func WithMetrics(c *metrics.Collector) Option { return func(svc *Service) { svc.metrics = c } }

func WithLogger(l zerolog.Logger) Option {
	return func(svc *Service) { svc.log = l.With().Str("component", "pricing").Logger() }
}

func WithNow(now func() time.Time) Option { return func(svc *Service) { svc.now = now } }

// QuotePolicy retries provider rate limits three times, waiting 10s, 20s.
func QuotePolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   10 * time.Second,
		MaxDelay:    time.Minute,
		Multiplier:  2,
		Retryable:   dataflows.IsRateLimited,
	}
}

func NewService(cache *Cache, opts ...Option) *Service {
	svc := &Service{
		cache:     cache,
		policy:    QuotePolicy(),
		freshness: DefaultFreshness,
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.policy.Retryable == nil {
		svc.policy.Retryable = dataflows.IsRateLimited
	}
	return svc
}

func (s *Service) Price(ctx context.Context, symbol string) (float64, bool) {
	symbol = dataflows.NormalizeSymbol(symbol)
	if s.cache != nil {
		if p, ok := s.cache.Get(symbol); ok {
			s.metrics.PriceLookup("cache")
			return p, true
		}
	}

	stored, storedAt, storedOK := s.stored(ctx, symbol)
	if storedOK && s.now().Sub(storedAt) < s.freshness {
		s.remember(symbol, stored.Current)
		s.metrics.PriceLookup("db")
		return stored.Current, true
	}

	q, err := s.Refresh(ctx, symbol)
	if err == nil {
		return q.Current, true
	}
	s.log.Warn().Err(err).Str("symbol", symbol).Msg("live quote unavailable")

	if storedOK && stored.Current > 0 {
		s.metrics.PriceLookup("db_stale")
		return stored.Current, true
	}
	s.metrics.PriceLookup("miss")
	return 0, false
}

// Refresh fetches a live quote, bypassing the cache, and writes it back to
// the store and the cache.
func (s *Service) Refresh(ctx context.Context, symbol string) (models.Quote, error) {
	if s.source == nil {
		return models.Quote{}, dataflows.ErrNoQuote
	}
	var q models.Quote
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		q, err = s.source.Quote(ctx, symbol)
		return err
	})
	if err != nil {
		return models.Quote{}, err
	}
	if q.Current <= 0 {
		return models.Quote{}, dataflows.ErrNoQuote
	}

	if s.store != nil {
		if err := s.store.SaveQuote(ctx, q, s.now()); err != nil {
			s.log.Error().Err(err).Str("symbol", symbol).Msg("failed to store quote")
		}
	}
	s.remember(symbol, q.Current)
	s.metrics.PriceLookup(s.source.Name())
	return q, nil
}

func (s *Service) stored(ctx context.Context, symbol string) (models.Quote, time.Time, bool) {
	if s.store == nil {
		return models.Quote{}, time.Time{}, false
	}
	q, at, err := s.store.LatestQuote(ctx, symbol)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error().Err(err).Str("symbol", symbol).Msg("failed to read stored quote")
		}
		return models.Quote{}, time.Time{}, false
	}
	return q, at, true
}

func (s *Service) remember(symbol string, price float64) {
	if s.cache != nil && price > 0 {
		s.cache.Set(symbol, price)
	}
}

// Prices looks up each symbol and returns the ones with a price.
func Prices(ctx context.Context, l Lookup, symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if p, ok := l.Price(ctx, sym); ok {
			out[sym] = p
		}
	}
	return out
}
