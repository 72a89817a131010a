package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/FinSim/internal/dataflows"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/retry"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCacheExpiresOnRead(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewCache(time.Hour, 100, WithClock(clk.now))

	c.Set("AAPL", 190)
	p, ok := c.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 190.0, p)

	clk.advance(59 * time.Minute)
	_, ok = c.Get("AAPL")
	assert.True(t, ok)

	clk.advance(time.Minute)
	_, ok = c.Get("AAPL")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheBounded(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewCache(time.Hour, 2, WithClock(clk.now))

	c.Set("A", 1)
	clk.advance(time.Second)
	c.Set("B", 2)
	clk.advance(time.Second)
	c.Set("C", 3)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("A")
	assert.False(t, ok, "oldest entry evicted")

	// overwriting an existing key does not evict
	c.Set("B", 20)
	assert.Equal(t, 2, c.Len())
	p, _ := c.Get("B")
	assert.Equal(t, 20.0, p)
}

type memStore struct {
	quotes map[string]models.Quote
	at     map[string]time.Time
	saves  int
	err    error
}

func newMemStore() *memStore {
	return &memStore{quotes: map[string]models.Quote{}, at: map[string]time.Time{}}
}

func (m *memStore) LatestQuote(_ context.Context, symbol string) (models.Quote, time.Time, error) {
	if m.err != nil {
		return models.Quote{}, time.Time{}, m.err
	}
	q, ok := m.quotes[symbol]
	if !ok {
		return models.Quote{}, time.Time{}, ErrNotFound
	}
	return q, m.at[symbol], nil
}

func (m *memStore) SaveQuote(_ context.Context, q models.Quote, at time.Time) error {
	m.saves++
	m.quotes[q.Symbol] = q
	m.at[q.Symbol] = at
	return nil
}

type fakeSource struct {
	calls int
	fn    func(call int, symbol string) (models.Quote, error)
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Quote(_ context.Context, symbol string) (models.Quote, error) {
	f.calls++
	return f.fn(f.calls, symbol)
}

func noWaitPolicy() retry.Policy {
	p := QuotePolicy()
	p.Sleep = retry.NoSleep
	return p
}

func TestServiceChain(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore()
	src := &fakeSource{fn: func(_ int, symbol string) (models.Quote, error) {
		return models.Quote{Symbol: symbol, Current: 101}, nil
	}}
	svc := NewService(NewCache(time.Hour, 100, WithClock(clk.now)),
		WithStore(store), WithSource(src), WithNow(clk.now), WithRetryPolicy(noWaitPolicy()))
	ctx := context.Background()

	// fresh DB row wins over the provider
	store.quotes["MSFT"] = models.Quote{Symbol: "MSFT", Current: 400}
	store.at["MSFT"] = clk.t.Add(-30 * time.Minute)
	p, ok := svc.Price(ctx, "msft")
	require.True(t, ok)
	assert.Equal(t, 400.0, p)
	assert.Equal(t, 0, src.calls)

	// stale DB row goes to the provider and is written back
	store.quotes["AAPL"] = models.Quote{Symbol: "AAPL", Current: 90}
	store.at["AAPL"] = clk.t.Add(-2 * time.Hour)
	p, ok = svc.Price(ctx, "AAPL")
	require.True(t, ok)
	assert.Equal(t, 101.0, p)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, store.saves)

	// now served from the cache
	p, ok = svc.Price(ctx, "AAPL")
	require.True(t, ok)
	assert.Equal(t, 101.0, p)
	assert.Equal(t, 1, src.calls)
}

func TestServiceRateLimitRetriesThenFallsBack(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore()
	store.quotes["NVDA"] = models.Quote{Symbol: "NVDA", Current: 480}
	store.at["NVDA"] = clk.t.Add(-3 * time.Hour)

	var waits []time.Duration
	policy := QuotePolicy()
	policy.Sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	src := &fakeSource{fn: func(int, string) (models.Quote, error) {
		return models.Quote{}, &dataflows.RateLimitError{Provider: "fake"}
	}}
	svc := NewService(NewCache(time.Hour, 10), WithStore(store), WithSource(src), WithNow(clk.now), WithRetryPolicy(policy))

	p, ok := svc.Price(context.Background(), "NVDA")
	require.True(t, ok)
	assert.Equal(t, 480.0, p)
	assert.Equal(t, 3, src.calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, waits)
}

func TestServiceUnavailable(t *testing.T) {
	src := &fakeSource{fn: func(int, string) (models.Quote, error) {
		return models.Quote{}, errors.New("connection refused")
	}}
	svc := NewService(NewCache(time.Hour, 10), WithSource(src), WithRetryPolicy(noWaitPolicy()))

	p, ok := svc.Price(context.Background(), "ZZZZ")
	assert.False(t, ok)
	assert.Equal(t, 0.0, p)
	assert.Equal(t, 1, src.calls, "non rate-limit errors are not retried")

	_, ok = NewService(nil).Price(context.Background(), "AAPL")
	assert.False(t, ok)
}

func TestStaticAndPrices(t *testing.T) {
	s := Static{"AAPL": 10, "BAD": 0}
	got := Prices(context.Background(), s, []string{"AAPL", "BAD", "NONE"})
	assert.Equal(t, map[string]float64{"AAPL": 10}, got)
}
