package stripe

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/stripe/stripe-go/v82"
)

// retryPolicy retries rate-limited provider calls with exponential backoff.
// Every other failure is returned on the first attempt.
type retryPolicy struct {
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
}

type retryNotifyFunc func(attempt uint64, wait time.Duration, err error)

func (p retryPolicy) do(ctx context.Context, op func() error, notify retryNotifyFunc) error {
	b := backoff.NewExponentialBackOff()
	if p.initialInterval > 0 {
		b.InitialInterval = p.initialInterval
	}
	if p.maxInterval > 0 {
		b.MaxInterval = p.maxInterval
	}
	// the caller's context deadline bounds the total time instead
	b.MaxElapsedTime = 0

	var attempt uint64
	return backoff.RetryNotify(
		func() error {
			err := op()
			if err == nil {
				return nil
			}
			if !isRateLimited(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(backoff.WithMaxRetries(b, p.maxRetries), ctx),
		func(err error, wait time.Duration) {
			attempt++
			if notify != nil {
				notify(attempt, wait, err)
			}
		},
	)
}

func isRateLimited(err error) bool {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.HTTPStatusCode == http.StatusTooManyRequests || se.Code == stripe.ErrorCodeRateLimit
}
