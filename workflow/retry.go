package workflow

import (
	"context"
	"math/rand"
	"time"
)

// RetryOptions controls the bounded retry used around warehouse sync steps.
type RetryOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
	}
}

// ExecuteWithRetry runs fn up to MaxAttempts times with exponential backoff
// plus jitter. The context is checked between attempts so a cancelled request
// does not keep hammering the database.
func ExecuteWithRetry(ctx context.Context, opts RetryOptions, fn func() error) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == opts.MaxAttempts {
			break
		}

		delay := opts.BaseDelay * time.Duration(1<<(attempt-1))
		jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay + jitter):
		}
	}
	return lastErr
}
