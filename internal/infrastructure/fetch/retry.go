package fetch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

// RetryPolicy wraps fetch calls in bounded exponential backoff. Only
// connection-class errors are retried; authentication failures and
// per-record errors pass straight through.
type RetryPolicy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is the policy applied to upstream fetch calls unless a
// supplier config overrides it.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Do runs op, retrying connection errors per the policy. The last error is
// returned once attempts are exhausted.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.InitialInterval
	expo.MaxInterval = p.MaxInterval

	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, attempts-1), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !syncdomain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
