// Package resilience holds retry helpers for calls to external providers.
package resilience

import (
	"context"
	"time"
)

// RetryPolicy defines retry behavior for transient failures.
// MaxRetries counts attempts after the first one; zero means a single attempt.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

// Do calls fn until it succeeds, retry reports false for its error, the
// attempts run out, or ctx is done. The backoff doubles after each failure.
// A nil retry treats every error as retryable.
func (r RetryPolicy) Do(ctx context.Context, retry func(error) bool, fn func(context.Context) error) error {
	var err error
	wait := r.Backoff
	for i := 0; i <= r.MaxRetries; i++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if i == r.MaxRetries || (retry != nil && !retry(err)) {
			return err
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
		wait *= 2
	}
	return err
}
