package llm

import (
	"errors"
	"fmt"
	"strings"
)

// RateLimitError reports that the provider answered 429.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (429): %v", e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a rate-limit failure, either typed or
// recognizable from the provider message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}

func classify(err error) error {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return err
	}
	if IsRateLimited(err) {
		return &RateLimitError{Err: err}
	}
	return err
}
