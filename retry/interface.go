package retry

import (
	"context"
	"time"
)

// Retrier defines the interface for retry policies.
// Implementations decide how many attempts are made and how long to wait between them.
type Retrier interface {
	// Do runs fn until it succeeds, returns a non-retryable error, or attempts run out.
	// It returns the last error from fn, or ctx.Err() if the context ends while waiting.
	Do(ctx context.Context, fn func(ctx context.Context) error) error

	// Delay returns how long to wait before the given attempt (1-indexed; attempt 1 has no wait).
	Delay(attempt int) time.Duration
}
