// Package retry implements the bounded exponential-backoff retry policy
// used by the remote embedding backend's provider calls (§4.1) and the
// recommendation workflow's planner/vision LLM calls (§4.9).
package retry

import (
	"context"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy makes up to 3 attempts with exponential backoff starting
// at 200ms, per spec.md §4.9's "up to 3 attempts with exponential
// backoff".
var DefaultPolicy = Policy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}

// Do calls fn up to p.MaxAttempts times, sleeping with exponential
// backoff between attempts while retryable(err) is true. It returns the
// last error if every attempt is exhausted, or nil as soon as fn
// succeeds.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func() error) error {
	var lastErr error
	delay := p.BaseDelay
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return lastErr
}
