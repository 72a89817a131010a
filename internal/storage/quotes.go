package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dyike/FinSim/internal/pricing"
	"github.com/dyike/FinSim/models"
)

var _ pricing.QuoteStore = (*Store)(nil)

// LatestQuote returns the newest stored quote for symbol and when it was
// fetched, or pricing.ErrNotFound.
func (s *Store) LatestQuote(ctx context.Context, symbol string) (models.Quote, time.Time, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT symbol, COALESCE(open, 0), COALESCE(high, 0), COALESCE(low, 0), current, COALESCE(previous_close, 0), fetched_at
FROM stock_prices
WHERE symbol = ?
ORDER BY fetched_at DESC
LIMIT 1
`, symbol)

	var (
		q  models.Quote
		at int64
	)
	if err := row.Scan(&q.Symbol, &q.Open, &q.High, &q.Low, &q.Current, &q.PreviousClose, &at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Quote{}, time.Time{}, pricing.ErrNotFound
		}
		return models.Quote{}, time.Time{}, fmt.Errorf("get quote: %w", err)
	}
	return q, fromUnix(at), nil
}

func (s *Store) SaveQuote(ctx context.Context, q models.Quote, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO stock_prices (symbol, open, high, low, current, previous_close, fetched_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(symbol, fetched_at) DO UPDATE SET current = excluded.current
`, q.Symbol, q.Open, q.High, q.Low, q.Current, q.PreviousClose, toUnix(at))
	if err != nil {
		return fmt.Errorf("save quote: %w", err)
	}
	return nil
}
