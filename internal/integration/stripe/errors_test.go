package stripe

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{
			name:  "missing resource",
			err:   &stripe.Error{Code: stripe.ErrorCodeResourceMissing, HTTPStatusCode: http.StatusNotFound},
			check: ierr.IsNotFound,
		},
		{
			name:  "rate limit",
			err:   &stripe.Error{Code: stripe.ErrorCodeRateLimit, HTTPStatusCode: http.StatusTooManyRequests},
			check: ierr.IsProviderUnavailable,
		},
		{
			name:  "invalid request",
			err:   &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: http.StatusBadRequest, Msg: "bad price"},
			check: ierr.IsValidation,
		},
		{
			name:  "authentication",
			err:   &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: http.StatusUnauthorized},
			check: ierr.IsProviderUnavailable,
		},
		{
			name:  "server error",
			err:   &stripe.Error{Type: stripe.ErrorTypeAPI, HTTPStatusCode: http.StatusBadGateway},
			check: ierr.IsProviderUnavailable,
		},
		{
			name:  "network",
			err:   errors.New("connection reset by peer"),
			check: ierr.IsProviderUnavailable,
		},
		{
			name:  "deadline",
			err:   errors.Wrap(context.DeadlineExceeded, "request"),
			check: ierr.IsProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapError(context.Background(), "test", tt.err)
			assert.True(t, tt.check(mapped), "unexpected mapping: %v", mapped)
		})
	}
}

func TestRetryPolicyOnlyRetriesRateLimits(t *testing.T) {
	p := retryPolicy{maxRetries: 3, initialInterval: time.Millisecond, maxInterval: time.Millisecond}

	attempts := 0
	err := p.do(context.Background(), func() error {
		attempts++
		return &stripe.Error{HTTPStatusCode: http.StatusBadRequest, Type: stripe.ErrorTypeInvalidRequest}
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var se *stripe.Error
	assert.True(t, errors.As(err, &se))

	attempts = 0
	var notified []uint64
	err = p.do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &stripe.Error{HTTPStatusCode: http.StatusTooManyRequests}
		}
		return nil
	}, func(attempt uint64, _ time.Duration, _ error) {
		notified = append(notified, attempt)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []uint64{1, 2}, notified)
}
