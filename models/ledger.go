package models

import "time"

const (
	TradeBuy  = "buy"
	TradeSell = "sell"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Balance      float64   `json:"balance"`
	Badges       string    `json:"badges"`
	CreatedAt    time.Time `json:"created_at"`
}

// Trade is one row of the append-only trade ledger.
type Trade struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Symbol    string    `json:"symbol"`
	Amount    float64   `json:"amount"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Holding aggregates the ledger for one symbol.
type Holding struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	TotalCost   float64 `json:"total_cost"`
	RealizedPnL float64 `json:"realized_pnl"`
}

func (h Holding) AvgBuyPrice() float64 {
	if h.Quantity <= 0 {
		return 0
	}
	return h.TotalCost / h.Quantity
}

// PortfolioLine is a holding valued at the current price.
type PortfolioLine struct {
	Holding
	CurrentPrice  float64 `json:"current_price"`
	CurrentValue  float64 `json:"current_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	PriceKnown    bool    `json:"price_known"`
}

type LeaderboardEntry struct {
	Username string  `json:"username"`
	Balance  float64 `json:"balance"`
	Badges   string  `json:"badges"`
}

// PreferenceRecord is one saved profile in a user's history.
type PreferenceRecord struct {
	ID        int64             `json:"id"`
	UserID    string            `json:"user_id"`
	Profile   InvestmentProfile `json:"profile"`
	Source    string            `json:"source"`
	CreatedAt time.Time         `json:"created_at"`
}
