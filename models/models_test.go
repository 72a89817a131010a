package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfileIsValid(t *testing.T) {
	p := DefaultProfile()
	assert.True(t, p.Valid())
	assert.Equal(t, 10000.0, p.InvestmentAmount)
	assert.Equal(t, StyleIndex, p.InvestmentStyle)

	p.RiskAppetite = "extreme"
	assert.False(t, p.Valid())

	p = DefaultProfile()
	p.InvestmentAmount = 0
	assert.False(t, p.Valid())
}

func TestPreferencesTokenRoundTrip(t *testing.T) {
	p := InvestmentProfile{
		RiskAppetite:          RiskLow,
		InvestmentGoals:       GoalRetirement,
		TimeHorizon:           HorizonLong,
		InvestmentAmount:      5000,
		InvestmentStyle:       StyleValue,
		AdditionalPreferences: "no tobacco?&=",
	}
	token, err := EncodePreferences(p)
	require.NoError(t, err)
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	got, err := DecodePreferences(token)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = DecodePreferences("%%%")
	assert.Error(t, err)
}

func TestRecommendationsTagged(t *testing.T) {
	empty := EmptyRecommendations("nothing survived validation")
	assert.False(t, empty.Tradeable())
	_, ok := empty.Top()
	assert.False(t, ok)
	assert.Equal(t, "empty", empty.Kind.String())

	assert.Equal(t, RecommendationsEmpty, OkRecommendations(nil).Kind)

	ok1 := OkRecommendations([]TradeCandidate{{Symbol: "AAPL"}, {Symbol: "MSFT"}})
	assert.True(t, ok1.Tradeable())
	top, ok := ok1.Top()
	require.True(t, ok)
	assert.Equal(t, "AAPL", top.Symbol)
}

func TestSnapshotLookups(t *testing.T) {
	snap := MarketSnapshot{
		{Symbol: "AAPL", Price: 190.5},
		{Symbol: "JPM", Err: "rate limited"},
		{Symbol: "V", Price: 0},
	}
	assert.Equal(t, []string{"AAPL", "JPM", "V"}, snap.Symbols())

	p, ok := snap.Price("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 190.5, p)

	_, ok = snap.Price("JPM")
	assert.False(t, ok)
	_, ok = snap.Price("V")
	assert.False(t, ok)
}

func TestReasoningTraceAppendOnly(t *testing.T) {
	tr := NewReasoningTrace()
	tr.Add("one")
	tr.Addf("amount $%.2f", 12.5)

	steps := tr.Steps()
	assert.Equal(t, []string{"one", "amount $12.50"}, steps)

	steps[0] = "mutated"
	assert.Equal(t, "one", tr.Steps()[0])

	var nilTrace *ReasoningTrace
	assert.NotPanics(t, func() { nilTrace.Add("x") })
	assert.Equal(t, 0, nilTrace.Len())
}

func TestSessionDefaults(t *testing.T) {
	s := NewSession()
	assert.False(t, s.Authenticated)
	assert.Equal(t, 100000.0, s.Balance)

	s.SignIn(User{ID: "u1", Username: "ada"}, 2500)
	assert.True(t, s.Authenticated)
	assert.Equal(t, 2500.0, s.Balance)

	s.SignOut()
	assert.Equal(t, *NewSession(), *s)
}

func TestHoldingAverage(t *testing.T) {
	assert.Equal(t, 0.0, Holding{}.AvgBuyPrice())
	assert.Equal(t, 50.0, Holding{Quantity: 2, TotalCost: 100}.AvgBuyPrice())
}
