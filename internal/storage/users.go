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

// CreateUser inserts u with the starting balance and no badges.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.Username) == "" {
		return models.User{}, fmt.Errorf("user id and username are required")
	}
	u.Balance = consts.StartingBalance
	u.Badges = consts.NoBadges
	u.CreatedAt = s.Now()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, username, password_hash, balance, badges, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, u.ID, u.Username, u.PasswordHash, u.Balance, u.Badges, toUnix(u.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return models.User{}, fmt.Errorf("%w: %s", ErrUserExists, u.Username)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.user(ctx, `WHERE username = ?`, username)
}

func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	return s.user(ctx, `WHERE id = ?`, id)
}

func (s *Store) user(ctx context.Context, where string, arg any) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, username, password_hash, balance, COALESCE(badges, 'None'), created_at
FROM users `+where+` LIMIT 1`, arg)

	var (
		u       models.User
		created int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Balance, &u.Badges, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = fromUnix(created)
	return u, nil
}

// Balance returns the stored balance, or the starting balance for an
// unknown user.
func (s *Store) Balance(ctx context.Context, userID string) (float64, error) {
	var balance float64
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return consts.StartingBalance, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// Leaderboard lists the richest users, at most limit of them.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = consts.LeaderboardLimit
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT username, balance, COALESCE(badges, 'None')
FROM users
ORDER BY balance DESC, username ASC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var out []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Balance, &e.Badges); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leaderboard rows: %w", err)
	}
	return out, nil
}
