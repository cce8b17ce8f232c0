// Package retry provides a bounded retry policy with exponential backoff.
package retry

import (
	"context"
	"time"
)

// Policy holds the retry configuration.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first. Values below 1 mean 1.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the wait between attempts. Zero means no cap.
	MaxDelay time.Duration

	// Multiplier grows the delay after each attempt. Values below 1 mean 2.
	Multiplier float64

	// Retryable decides whether an error is worth another attempt. Nil retries every error.
	Retryable func(error) bool
}

// Ensure Policy implements Retrier.
var _ Retrier = (*Policy)(nil)

// None returns a policy that makes exactly one attempt.
func None() *Policy {
	return &Policy{MaxAttempts: 1}
}

// New creates a policy with the given attempts and initial delay, doubling the delay each time.
func New(maxAttempts int, initialDelay time.Duration) *Policy {
	return &Policy{
		MaxAttempts:  maxAttempts,
		InitialDelay: initialDelay,
		Multiplier:   2,
	}
}

// WithRetryable returns a copy of the policy that only retries errors accepted by fn.
func (p *Policy) WithRetryable(fn func(error) bool) *Policy {
	if p == nil {
		return &Policy{MaxAttempts: 1, Retryable: fn}
	}
	pX := *p
	pX.Retryable = fn
	return &pX
}

func (p *Policy) attempts() int {
	if p == nil || p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns the wait before attempt (1-indexed).
func (p *Policy) Delay(attempt int) time.Duration {
	if p == nil || attempt <= 1 || p.InitialDelay <= 0 {
		return 0
	}

	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 2
	}

	delay := float64(p.InitialDelay)
	for i := 2; i < attempt; i++ {
		delay *= multiplier
		if p.MaxDelay > 0 && delay >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}

	d := time.Duration(delay)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn under the policy.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= p.attempts(); attempt++ {
		if wait := p.Delay(attempt); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
				// Wait complete, try again
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if p != nil && p.Retryable != nil && !p.Retryable(err) {
			return err
		}
	}
	return err
}
