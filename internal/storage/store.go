// Package storage is the sqlite persistence layer: users, balances and
// badges, saved preferences, the trade ledger and cached stock quotes.
package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/dyike/FinSim/pkg/sqlite"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("username already taken")
	ErrNoPreferences     = errors.New("no saved preferences")
	ErrInsufficientFunds = errors.New("insufficient balance")
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    balance REAL NOT NULL DEFAULT 100000.0,
    badges TEXT DEFAULT 'None',
    created_at INTEGER NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS preferences (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    profile_json TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
)`, `
CREATE INDEX IF NOT EXISTS idx_preferences_user ON preferences(user_id, id)`, `
CREATE TABLE IF NOT EXISTS trades (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    symbol TEXT NOT NULL,
    amount REAL NOT NULL,
    price REAL NOT NULL,
    quantity REAL NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('buy', 'sell')),
    timestamp INTEGER NOT NULL
)`, `
CREATE INDEX IF NOT EXISTS idx_trades_user_time ON trades(user_id, timestamp)`, `
CREATE TABLE IF NOT EXISTS stock_prices (
    symbol TEXT NOT NULL,
    open REAL,
    high REAL,
    low REAL,
    current REAL NOT NULL,
    previous_close REAL,
    fetched_at INTEGER NOT NULL,
    PRIMARY KEY (symbol, fetched_at)
)`,
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*Store)

// WithNow replaces the clock used for created_at columns.
func WithNow(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// Open opens dbPath and creates missing tables. Pass sqlite.Memory for a
// throwaway database.
func Open(dbPath string, opts ...Option) (*Store, error) {
	db, err := sqlite.Open(dbPath, schema...)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Now() time.Time {
	return s.now().UTC()
}

func toUnix(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }
