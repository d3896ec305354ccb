// internal/market/retry.go
package market

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/newthinker/folio/internal/core"
)

// RetryPolicy bounds the attempts made against a single provider before
// falling through to the next one.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// AttemptTimeout caps each individual provider call; zero means none.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns 3 attempts with 200ms initial backoff capped at 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		AttemptTimeout: 10 * time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialBackoff
	eb.MaxInterval = p.MaxBackoff
	eb.Multiplier = 2
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

// retryable reports whether err is worth another attempt at the same
// provider. Throttling, unusable payloads and answers about the symbol
// itself are final.
func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, core.ErrRateLimited),
		errors.Is(err, core.ErrMalformedPayload),
		errors.Is(err, core.ErrMalformedDate),
		errors.Is(err, core.ErrNoData),
		errors.Is(err, core.ErrSymbolNotFound),
		errors.Is(err, core.ErrConfigMissing):
		return false
	}
	return true
}

// withRetry runs fn under the policy, passing a per-attempt context.
func withRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	op := func() error {
		attemptCtx := ctx
		if policy.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
			defer cancel()
		}
		err := fn(attemptCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, policy.backOff(ctx))
}
