package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy configures exponential backoff. Attempt n (0-based) waits
// BaseDelay * Multiplier^n before the next try, capped at MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64

	// Retryable decides whether an error is worth another attempt.
	// A nil Retryable retries every error.
	Retryable func(error) bool

	// DelayFor overrides the computed delay for a given error and attempt.
	DelayFor func(err error, attempt int) time.Duration

	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each wait.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultPolicy returns three attempts with a one second base delay.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		Multiplier:  2.0,
	}
}

// ErrExhausted marks the error returned after the last attempt failed.
var ErrExhausted = errors.New("max retries exceeded")

// Do runs fn until it succeeds, returns a non-retryable error, the policy
// runs out of attempts, or ctx is cancelled.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		delay := p.Backoff(attempt)
		if p.DelayFor != nil {
			delay = p.DelayFor(err, attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(err, attempt, delay)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
	return fmt.Errorf("%w (%d attempts): %w", ErrExhausted, attempts, lastErr)
}

// Backoff returns the delay after the given 0-based attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	delay := float64(p.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= mult
	}
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// Sleep waits for d or returns ctx.Err() when ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoSleep is a Sleep replacement that records nothing and returns at once.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
