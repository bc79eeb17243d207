package fetch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/modfetch/modfetch/internal/domain"
)

// RetryPolicy bounds how often a registry operation is retried after a
// retryable failure (rate limit, transport error). Non-retryable errors
// (not found, integrity) stop immediately.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// DefaultRetryPolicy matches the registry etiquette the tool ships with.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: 500 * time.Millisecond}
}

// Do runs op, retrying with exponential backoff until it succeeds, fails
// with a non-retryable error, exhausts MaxAttempts, or ctx is cancelled.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		bo.InitialInterval = p.InitialBackoff
	}
	bo.MaxElapsedTime = 0 // the attempt ceiling bounds the loop, not wall time

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxAttempts-1)), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !domain.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
