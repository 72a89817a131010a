package strategist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/FinSim/config"
	"github.com/dyike/FinSim/internal/llm"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/retry"
)

var snapshot = models.MarketSnapshot{
	{Symbol: "AAPL", Company: "Apple", Price: 200},
	{Symbol: "MSFT", Company: "Microsoft", Price: 400},
	{Symbol: "NVDA", Company: "NVIDIA", Price: 100},
	{Symbol: "JPM", Company: "JPMorgan", Price: 150},
	{Symbol: "GOOGL", Company: "Alphabet", Price: 150},
	{Symbol: "TSLA", Err: "rate limited"},
}

const fourItems = "Here you go:\n```json\n[" +
	`{"Symbol":"AAPL","Company":"Apple","Action":"Buy","Quantity":10,"Reason":"r","Caution":"c","NewsSentiment":"Positive","Score":70},` +
	`{"Symbol":"MSFT","Company":"Microsoft","Action":"Hold","Quantity":0,"Reason":"r","Caution":"c","NewsSentiment":"Neutral","Score":90},` +
	`{"Symbol":"NVDA","Company":"NVIDIA","Action":"Buy","Quantity":50,"Reason":"r","Caution":"c","NewsSentiment":"Positive","Score":85},` +
	`{"Symbol":"JPM","Company":"JPMorgan","Action":"Sell","Quantity":5,"Reason":"r","Caution":"c","NewsSentiment":"Negative","Score":40}` +
	"]\n```"

const fourTradeable = "[" +
	`{"Symbol":"AAPL","Company":"Apple","Action":"Buy","Quantity":10,"Reason":"r","Caution":"c","NewsSentiment":"Positive","Score":70},` +
	`{"Symbol":"MSFT","Company":"Microsoft","Action":"Hold","Quantity":0,"Reason":"r","Caution":"c","NewsSentiment":"Neutral","Score":90},` +
	`{"Symbol":"NVDA","Company":"NVIDIA","Action":"Buy","Quantity":50,"Reason":"r","Caution":"c","NewsSentiment":"Positive","Score":85},` +
	`{"Symbol":"GOOGL","Company":"Alphabet","Action":"Sell","Quantity":5,"Reason":"r","Caution":"c","NewsSentiment":"Negative","Score":40}` +
	"]"

type scripted struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scripted) Generate(context.Context, string) (string, error) {
	i := s.calls
	s.calls++
	var reply string
	var err error
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return reply, err
}

func recordSleeps(d *[]time.Duration) Option {
	return WithSleep(func(_ context.Context, delay time.Duration) error {
		*d = append(*d, delay)
		return nil
	})
}

func TestRejectModeTopThreeByScore(t *testing.T) {
	gen := &scripted{replies: []string{fourTradeable}}
	s := New(gen, WithSleep(func(context.Context, time.Duration) error { return nil }))

	got := s.Recommend(context.Background(), models.DefaultProfile(), snapshot)
	require.True(t, got.Tradeable())
	require.Len(t, got.Candidates, 3)
	assert.Equal(t, []string{"MSFT", "NVDA", "AAPL"}, []string{got.Candidates[0].Symbol, got.Candidates[1].Symbol, got.Candidates[2].Symbol})
	assert.Equal(t, 5000.0, got.Candidates[1].TotalCost)
	assert.Equal(t, 1, gen.calls)
}

func TestRejectModeRetriesOnInvalidItem(t *testing.T) {
	bad := `[{"Symbol":"ZZZZ","Company":"x","Action":"Buy","Quantity":1,"Reason":"r","Caution":"c","NewsSentiment":"Positive","Score":50}]`
	gen := &scripted{replies: []string{"not json at all", bad, fourTradeable}}
	var sleeps []time.Duration
	s := New(gen, recordSleeps(&sleeps))

	got := s.Recommend(context.Background(), models.DefaultProfile(), snapshot)
	assert.True(t, got.Tradeable())
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, sleeps)
}

func TestRateLimitBackoff(t *testing.T) {
	limited := &llm.RateLimitError{Err: errors.New("429 Too Many Requests")}
	gen := &scripted{errs: []error{limited, limited, limited}}
	var sleeps []time.Duration
	s := New(gen, recordSleeps(&sleeps))

	got := s.Recommend(context.Background(), models.DefaultProfile(), snapshot)
	assert.False(t, got.Tradeable())
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, sleeps)
}

func TestRejectModeFractionalQuantity(t *testing.T) {
	reply := `[{"Symbol":"AAPL","Company":"Apple","Action":"Buy","Quantity":2.5,"Reason":"r","Caution":"c","NewsSentiment":"Positive","Score":70}]`
	gen := &scripted{replies: []string{reply, reply, reply}}
	s := New(gen, WithSleep(func(context.Context, time.Duration) error { return nil }))

	got := s.Recommend(context.Background(), models.DefaultProfile(), snapshot)
	assert.Equal(t, models.RecommendationsEmpty, got.Kind)
}

func TestRepairModeKeepsValidAndRepairs(t *testing.T) {
	gen := &scripted{replies: []string{fourItems}}
	s := New(gen, WithMode(config.StrategistModeRepair))
	profile := models.DefaultProfile()
	profile.InvestmentAmount = 1000

	got := s.Recommend(context.Background(), profile, snapshot)
	require.True(t, got.Tradeable())
	// MSFT is Hold and JPM is outside the tradeable universe.
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "NVDA", got.Candidates[0].Symbol)
	assert.Equal(t, 10.0, got.Candidates[0].Quantity)
	assert.Equal(t, "AAPL", got.Candidates[1].Symbol)
	assert.Equal(t, 5.0, got.Candidates[1].Quantity)
	for _, c := range got.Candidates {
		assert.LessOrEqual(t, c.TotalCost, 1000.0)
	}
}

func TestEmptySnapshotSkipsGeneration(t *testing.T) {
	gen := &scripted{}
	got := New(gen).Recommend(context.Background(), models.DefaultProfile(), models.MarketSnapshot{{Symbol: "AAPL", Err: "down"}})
	assert.False(t, got.Tradeable())
	assert.Zero(t, gen.calls)
}

func TestRejectModeRefusesScanOnlySymbols(t *testing.T) {
	// JPM is scanned but not tradeable, so every attempt fails.
	gen := &scripted{replies: []string{fourItems, fourItems, fourItems}}
	s := New(gen, WithSleep(retry.NoSleep))

	got := s.Recommend(context.Background(), models.DefaultProfile(), snapshot)
	assert.False(t, got.Tradeable())
	assert.Equal(t, 3, gen.calls)
}

func TestScanOnlySnapshotSkipsGeneration(t *testing.T) {
	gen := &scripted{}
	onlyScan := models.MarketSnapshot{
		{Symbol: "JPM", Company: "JPMorgan", Price: 150},
		{Symbol: "WMT", Company: "Walmart", Price: 90},
	}
	got := New(gen).Recommend(context.Background(), models.DefaultProfile(), onlyScan)
	assert.False(t, got.Tradeable())
	assert.Zero(t, gen.calls)
}

func TestExhaustedRateLimitIsNotRetriedAgain(t *testing.T) {
	var calls int
	inner := llm.GeneratorFunc(func(context.Context, string) (string, error) {
		calls++
		return "", &llm.RateLimitError{Err: errors.New("429 Too Many Requests")}
	})
	policy := retry.DefaultPolicy()
	policy.Sleep = retry.NoSleep
	gen := llm.NewRetryingGenerator(inner, policy)

	var sleeps []time.Duration
	got := New(gen, recordSleeps(&sleeps)).Recommend(context.Background(), models.DefaultProfile(), snapshot)
	assert.False(t, got.Tradeable())
	assert.Equal(t, 3, calls)
	assert.Empty(t, sleeps)
}
