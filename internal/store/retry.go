package store

import (
	"context"
	"log"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy retries an operation on transient error kinds with capped
// exponential backoff. Non-retryable errors surface immediately; after the
// final attempt fails the original error surfaces unwrapped.
type RetryPolicy struct {
	maxAttempts uint64
	baseDelay   time.Duration
	maxDelay    time.Duration
	retryable   func(error) bool
}

func NewRetryPolicy(maxAttempts uint64, baseDelay time.Duration) *RetryPolicy {
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	return &RetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    2 * time.Second,
		retryable: func(err error) bool {
			return Classify(err) == KindBusy
		},
	}
}

// WithRetryable overrides the error classification used to decide whether an
// attempt is repeated.
func (p *RetryPolicy) WithRetryable(fn func(error) bool) *RetryPolicy {
	p.retryable = fn
	return p
}

func (p *RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	attempt := uint64(0)

	b := retry.WithCappedDuration(p.maxDelay, retry.NewExponential(p.baseDelay))
	b = retry.WithMaxRetries(p.maxAttempts-1, b)

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := op(ctx)
		if err == nil {
			lastErr = nil
			return nil
		}
		lastErr = err
		if p.retryable(err) {
			if attempt < p.maxAttempts {
				log.Printf(
					"retrying transient database error (attempt %d/%d): %v",
					attempt, p.maxAttempts, err,
				)
			}
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil && lastErr != nil {
		// go-retry hands back its wrapper on exhaustion; callers get the
		// operation's own error.
		return lastErr
	}
	return err
}
