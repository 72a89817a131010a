package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func recordingPolicy(delays *[]time.Duration) Policy {
	p := DefaultPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return p
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := Do(context.Background(), recordingPolicy(&delays), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestDoExhausts(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := Do(context.Background(), recordingPolicy(&delays), func(ctx context.Context) error {
		calls++
		return errBoom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	var delays []time.Duration
	p := recordingPolicy(&delays)
	p.Retryable = func(err error) bool { return !errors.Is(err, errBoom) }
	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return errBoom
	})
	assert.Equal(t, errBoom, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestDoUsesDelayFor(t *testing.T) {
	var delays []time.Duration
	p := recordingPolicy(&delays)
	p.DelayFor = func(err error, attempt int) time.Duration {
		return 10 * time.Second << attempt
	}
	_ = Do(context.Background(), p, func(ctx context.Context) error { return errBoom })
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, delays)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := DefaultPolicy()
	err := Do(ctx, p, func(ctx context.Context) error { return errBoom })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffCapped(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 3*time.Second, p.Backoff(2))
}
