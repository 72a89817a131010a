package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dyike/FinSim/consts"
	"github.com/dyike/FinSim/models"
)

// AddTrade appends t to the ledger and settles it against the user's
// balance in one transaction: buys debit, sells credit. A user's first trade
// earns the first-trade badge. It returns the user as stored afterwards.
func (s *Store) AddTrade(ctx context.Context, t models.Trade) (models.User, error) {
	if t.Type != models.TradeBuy && t.Type != models.TradeSell {
		return models.User{}, fmt.Errorf("trade type must be %q or %q, got %q", models.TradeBuy, models.TradeSell, t.Type)
	}
	if strings.TrimSpace(t.ID) == "" {
		return models.User{}, fmt.Errorf("trade id is required")
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = s.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, fmt.Errorf("begin trade: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		balance float64
		badges  string
	)
	err = tx.QueryRowContext(ctx, `SELECT balance, COALESCE(badges, 'None') FROM users WHERE id = ?`, t.UserID).Scan(&balance, &badges)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load balance: %w", err)
	}

	if t.Type == models.TradeBuy {
		if t.Amount > balance {
			return models.User{}, fmt.Errorf("%w: need $%.2f, have $%.2f", ErrInsufficientFunds, t.Amount, balance)
		}
		balance -= t.Amount
	} else {
		balance += t.Amount
	}
	if badges == "" || badges == consts.NoBadges {
		badges = consts.FirstTradeBadge
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO trades (id, user_id, symbol, amount, price, quantity, type, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, t.ID, t.UserID, t.Symbol, t.Amount, t.Price, t.Quantity, t.Type, toUnix(t.Timestamp)); err != nil {
		return models.User{}, fmt.Errorf("insert trade: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET balance = ?, badges = ? WHERE id = ?`, balance, badges, t.UserID); err != nil {
		return models.User{}, fmt.Errorf("update balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.User{}, fmt.Errorf("commit trade: %w", err)
	}
	return s.UserByID(ctx, t.UserID)
}

// Trades returns the user's ledger in time order. An empty symbol means all.
func (s *Store) Trades(ctx context.Context, userID, symbol string) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, symbol, amount, price, quantity, type, timestamp
FROM trades
WHERE user_id = ? AND (? = '' OR symbol = ?)
ORDER BY timestamp ASC, rowid ASC
`, userID, symbol, symbol)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var (
			t  models.Trade
			ts int64
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Amount, &t.Price, &t.Quantity, &t.Type, &ts); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Timestamp = fromUnix(ts)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trades rows: %w", err)
	}
	return out, nil
}
