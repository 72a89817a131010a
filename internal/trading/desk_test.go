package trading

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/FinSim/consts"
	"github.com/dyike/FinSim/internal/pricing"
	"github.com/dyike/FinSim/internal/storage"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/sqlite"
)

type fixedWorkflow []models.TradeCandidate

func (f fixedWorkflow) Run(context.Context, models.InvestmentProfile, string) models.WorkflowResult {
	return models.WorkflowResult{Recommendations: f}
}

func setup(t *testing.T, prices pricing.Lookup, opts ...Option) (*Desk, *storage.Store, *models.Session) {
	t.Helper()
	store, err := storage.Open(sqlite.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	u, err := store.CreateUser(context.Background(), models.User{ID: "u1", Username: "alice", PasswordHash: "x"})
	require.NoError(t, err)
	s := models.NewSession()
	s.SignIn(u, u.Balance)

	n := 0
	opts = append([]Option{
		WithIDs(func() string { n++; return fmt.Sprintf("trade-%d", n) }),
		WithNow(func() time.Time { return time.Date(2025, 6, 1, 0, 0, n, 0, time.UTC) }),
	}, opts...)
	return NewDesk(store, prices, opts...), store, s
}

func TestManualBuyAndSell(t *testing.T) {
	desk, store, s := setup(t, pricing.Static{"AAPL": 200})
	ctx := context.Background()

	buy, err := desk.Manual(ctx, s, "aapl", 1000, "Buy")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", buy.Symbol)
	assert.Equal(t, 5.0, buy.Quantity)
	assert.Equal(t, models.TradeBuy, buy.Type)
	assert.Equal(t, consts.StartingBalance-1000, s.Balance)

	u, err := store.UserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, consts.FirstTradeBadge, u.Badges)

	_, err = desk.Manual(ctx, s, "AAPL", 400, "sell")
	require.NoError(t, err)
	assert.Equal(t, consts.StartingBalance-600, s.Balance)

	_, err = desk.Manual(ctx, s, "AAPL", 1000, "sell")
	assert.ErrorIs(t, err, ErrInsufficientShares)
}

func TestManualRejects(t *testing.T) {
	desk, _, s := setup(t, pricing.Static{"AAPL": 200})
	ctx := context.Background()

	_, err := desk.Manual(ctx, models.NewSession(), "AAPL", 10, "buy")
	assert.ErrorIs(t, err, ErrNotSignedIn)
	_, err = desk.Manual(ctx, s, "AAPL", 0, "buy")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = desk.Manual(ctx, s, "AAPL", 10, "short")
	assert.ErrorIs(t, err, ErrInvalidType)
	_, err = desk.Manual(ctx, s, "ZZZZ", 10, "buy")
	assert.ErrorIs(t, err, ErrSymbolNotAllowed)
	_, err = desk.Manual(ctx, s, "AAPL", consts.StartingBalance+1, "buy")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = desk.Manual(ctx, s, "MSFT", 10, "buy")
	assert.ErrorIs(t, err, ErrNoPrice)
	assert.Equal(t, consts.StartingBalance, s.Balance)
}

func TestAgentExecutesTopCandidate(t *testing.T) {
	wf := fixedWorkflow{
		{Symbol: "NVDA", Action: models.ActionBuy, Quantity: 3, CurrentPrice: 90, Score: 88},
		{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 1, CurrentPrice: 200, Score: 70},
	}
	desk, store, s := setup(t, pricing.Static{"NVDA": 100.5}, WithRecommender(wf))

	res, err := desk.Agent(context.Background(), s, models.DefaultProfile())
	require.NoError(t, err)
	assert.Equal(t, "NVDA", res.Candidate.Symbol)
	assert.Equal(t, 100.5, res.Trade.Price)
	assert.Equal(t, 301.5, res.Trade.Amount)
	assert.Equal(t, consts.StartingBalance-301.5, s.Balance)

	trades, err := store.Trades(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestAgentWithoutRecommendation(t *testing.T) {
	desk, _, s := setup(t, pricing.Static{}, WithRecommender(fixedWorkflow{}))
	_, err := desk.Agent(context.Background(), s, models.DefaultProfile())
	assert.ErrorIs(t, err, ErrNoRecommendation)

	desk, _, s = setup(t, pricing.Static{}, WithRecommender(fixedWorkflow{{Symbol: "AAPL", Action: models.ActionHold, Quantity: 1}}))
	_, err = desk.Agent(context.Background(), s, models.DefaultProfile())
	assert.ErrorIs(t, err, ErrNothingToExecute)
}

func TestAgentRefusesUntradeableSymbol(t *testing.T) {
	wf := fixedWorkflow{{Symbol: "JPM", Action: models.ActionBuy, Quantity: 2, CurrentPrice: 150, Score: 90}}
	desk, store, s := setup(t, pricing.Static{"JPM": 150}, WithRecommender(wf))

	res, err := desk.Agent(context.Background(), s, models.DefaultProfile())
	assert.ErrorIs(t, err, ErrSymbolNotAllowed)
	assert.Equal(t, "JPM", res.Candidate.Symbol)
	assert.Equal(t, consts.StartingBalance, s.Balance)

	trades, err := store.Trades(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Empty(t, trades)
}
