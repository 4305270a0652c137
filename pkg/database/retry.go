package database

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

type RetryOptions struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries:  5,
		BaseBackoff: 20 * time.Millisecond,
		MaxBackoff:  time.Second,
	}
}

// WithRetry runs fn until it succeeds, fails permanently, or the retry budget
// is spent. fn must redo its reads on every attempt: a retry after a version
// conflict is only correct when the next attempt starts from fresh state.
func WithRetry(ctx context.Context, opts RetryOptions, fn func() error) error {
	backoff := opts.BaseBackoff
	if backoff <= 0 {
		backoff = DefaultRetryOptions().BaseBackoff
	}

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt >= opts.MaxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", opts.MaxRetries, err)
		}

		jitter := time.Duration(rand.Int63n(int64(backoff/4) + 1))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if opts.MaxBackoff > 0 && backoff > opts.MaxBackoff {
			backoff = opts.MaxBackoff
		}
	}
}
