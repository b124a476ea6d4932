package stripe

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/stripe/stripe-go/v82"
)

// mapError translates a Stripe failure into the service error taxonomy.
// Anything that does not tell us something definite about the requested
// object is ProviderUnavailable, so callers keep their last known state.
func mapError(ctx context.Context, operation string, err error) error {
	details := map[string]any{"operation": operation}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return ierr.WithError(err).
			WithHint("The billing provider did not respond in time").
			WithReportableDetails(details).
			Mark(ierr.ErrProviderUnavailable)
	}

	var se *stripe.Error
	if !errors.As(err, &se) {
		return ierr.WithError(err).
			WithHint("The billing provider could not be reached").
			WithReportableDetails(details).
			Mark(ierr.ErrProviderUnavailable)
	}

	details["stripe_code"] = string(se.Code)
	details["stripe_request_id"] = se.RequestID
	details["http_status"] = se.HTTPStatusCode

	switch {
	case se.Code == stripe.ErrorCodeResourceMissing || se.HTTPStatusCode == http.StatusNotFound:
		return ierr.WithError(err).
			WithHint("The billing provider does not know this object").
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)

	case isRateLimited(err):
		return ierr.WithError(err).
			WithHint("The billing provider is rate limiting requests").
			WithReportableDetails(details).
			Mark(ierr.ErrProviderUnavailable)

	case se.HTTPStatusCode == http.StatusBadRequest && se.Type == stripe.ErrorTypeInvalidRequest:
		return ierr.WithError(err).
			WithHintf("The billing provider rejected the request: %s", se.Msg).
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)

	default:
		// auth failures, 5xx and API errors carry no information about the tenant
		return ierr.WithError(err).
			WithHint("The billing provider is unavailable").
			WithReportableDetails(details).
			Mark(ierr.ErrProviderUnavailable)
	}
}
