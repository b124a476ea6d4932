package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flexprice/tiersync/internal/config"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

// newTestGateway points a gateway at a local stand-in for the Stripe API
func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})

	cfg := config.GetDefaultConfig()
	cfg.Billing.Stripe.SecretKey = "sk_test_gateway"
	cfg.Billing.Stripe.InitialBackoff = time.Millisecond
	cfg.Billing.Stripe.MaxBackoff = 5 * time.Millisecond
	cfg.Billing.Stripe.MaxRateLimitRetries = 2

	g := NewGateway(cfg, logger.NewNoop(), nil, nil)
	g.client = stripe.NewClient(cfg.Billing.Stripe.SecretKey, stripe.WithBackends(backends))
	return g
}

func writeStripeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"type":"invalid_request_error","code":%q,"message":"test failure"}}`, code)
}

const subscriptionListBody = `{
  "object": "list",
  "url": "/v1/subscriptions",
  "has_more": false,
  "data": [
    {"id": "sub_old", "object": "subscription", "status": "active", "created": 100, "customer": "cus_1",
     "items": {"object": "list", "data": [{"id": "si_1", "object": "subscription_item", "current_period_end": 500,
       "price": {"id": "price_starter", "object": "price", "product": "prod_starter"}}]}},
    {"id": "sub_gone", "object": "subscription", "status": "canceled", "created": 300, "customer": "cus_1",
     "items": {"object": "list", "data": []}},
    {"id": "sub_new", "object": "subscription", "status": "trialing", "created": 200, "customer": "cus_1",
     "cancel_at_period_end": true,
     "items": {"object": "list", "data": [{"id": "si_2", "object": "subscription_item", "current_period_end": 900,
       "price": {"id": "price_pro", "object": "price", "product": "prod_pro"}}]}}
  ]
}`

func TestListActiveSubscriptionsFiltersAndOrders(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscriptions", r.URL.Path)
		assert.Equal(t, "cus_1", r.URL.Query().Get("customer"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(subscriptionListBody))
	})

	subs, err := g.ListActiveSubscriptions(context.Background(), "cus_1")
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, "sub_new", subs[0].ID)
	assert.True(t, subs[0].CancelAtPeriodEnd)
	assert.Equal(t, []string{"price_pro"}, subs[0].PriceIDs)
	assert.Equal(t, []string{"prod_pro"}, subs[0].ProductIDs)
	require.NotNil(t, subs[0].CurrentPeriodEnd)
	assert.Equal(t, int64(900), subs[0].CurrentPeriodEnd.Unix())

	assert.Equal(t, "sub_old", subs[1].ID)
	assert.Equal(t, "cus_1", subs[1].CustomerID)
}

func TestRetrieveSubscriptionNotFound(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeStripeError(w, http.StatusNotFound, string(stripe.ErrorCodeResourceMissing))
	})

	_, err := g.RetrieveSubscription(context.Background(), "sub_missing")
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestRateLimitRetriedThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeStripeError(w, http.StatusTooManyRequests, string(stripe.ErrorCodeRateLimit))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(subscriptionListBody))
	})

	subs, err := g.ListActiveSubscriptions(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Len(t, subs, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRateLimitExhaustedIsProviderUnavailable(t *testing.T) {
	var calls atomic.Int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeStripeError(w, http.StatusTooManyRequests, string(stripe.ErrorCodeRateLimit))
	})

	_, err := g.ListActiveSubscriptions(context.Background(), "cus_1")
	require.Error(t, err)
	assert.True(t, ierr.IsProviderUnavailable(err))
	// first attempt plus the configured retries
	assert.Equal(t, int32(3), calls.Load())
}

func TestServerErrorIsProviderUnavailable(t *testing.T) {
	var calls atomic.Int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`))
	})

	_, err := g.ListActiveSubscriptions(context.Background(), "cus_1")
	require.Error(t, err)
	assert.True(t, ierr.IsProviderUnavailable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFindCustomerByEmail(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/customers/search", r.URL.Path)
		assert.Equal(t, `email:'o\'neil@clinic.test'`, r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"search_result","url":"/v1/customers/search","has_more":false,
			"data":[{"id":"cus_9","object":"customer","email":"o'neil@clinic.test"}]}`))
	})

	c, err := g.FindCustomerByEmail(context.Background(), "o'neil@clinic.test")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "cus_9", c.ID)

	none, err := g.FindCustomerByEmail(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestTimeoutIsProviderUnavailable(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	g.cfg.Timeout = 20 * time.Millisecond

	_, err := g.ListActiveSubscriptions(context.Background(), "cus_1")
	require.Error(t, err)
	assert.True(t, ierr.IsProviderUnavailable(err))
}

func TestEscapeSearchValue(t *testing.T) {
	assert.Equal(t, `a\\b\'c`, escapeSearchValue(`a\b'c`))
}
