package stripe

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/flexprice/tiersync/internal/config"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_unit"

func newVerifier(secret string) *WebhookVerifier {
	cfg := config.GetDefaultConfig()
	cfg.Billing.Stripe.WebhookSecret = secret
	return NewWebhookVerifier(cfg, logger.NewNoop())
}

func signEvent(t *testing.T, eventType string, object map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"type":        eventType,
		"created":     1700000000,
		"api_version": "2025-03-31.basil",
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Payload, signed.Header
}

func TestVerifyEventRejectsBadSignature(t *testing.T) {
	v := newVerifier(testSecret)
	payload, header := signEvent(t, EventInvoicePaid, map[string]any{"id": "in_1", "object": "invoice"})

	_, err := v.VerifyEvent(payload, "t=1,v1=00")
	assert.True(t, ierr.IsInvalidSignature(err))

	_, err = v.VerifyEvent(payload, "")
	assert.True(t, ierr.IsInvalidSignature(err))

	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = ' '
	_, err = v.VerifyEvent(tampered, header)
	assert.True(t, ierr.IsInvalidSignature(err))
}

func TestVerifyEventWithoutSecret(t *testing.T) {
	payload, header := signEvent(t, EventInvoicePaid, map[string]any{"id": "in_1", "object": "invoice"})

	_, err := newVerifier("").VerifyEvent(payload, header)
	require.Error(t, err)
	assert.False(t, ierr.IsInvalidSignature(err))
}

func TestVerifyEventUnrecognized(t *testing.T) {
	payload, header := signEvent(t, "charge.refunded", map[string]any{"id": "ch_1", "object": "charge"})

	event, err := newVerifier(testSecret).VerifyEvent(payload, header)
	require.NoError(t, err)
	assert.False(t, event.Recognized())
	assert.Equal(t, "charge.refunded", event.Type)
}

func TestVerifyEventUndecodableDataObject(t *testing.T) {
	payload, header := signEvent(t, EventCustomerSubscriptionUpdated, map[string]any{
		"id":       "sub_1",
		"object":   "subscription",
		"customer": 12345,
	})

	event, err := newVerifier(testSecret).VerifyEvent(payload, header)
	require.NoError(t, err)
	assert.True(t, event.Malformed)
	assert.False(t, event.Recognized())
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCustomerSubscriptionUpdated, event.Type)
}

func TestClassifySubscriptionEvent(t *testing.T) {
	payload, header := signEvent(t, EventCustomerSubscriptionDeleted, map[string]any{
		"id":       "sub_1",
		"object":   "subscription",
		"customer": "cus_1",
		"status":   "canceled",
		"metadata": map[string]string{"tenant_id": "t1"},
		"items": map[string]any{"object": "list", "data": []any{
			map[string]any{"price": map[string]any{"id": "price_pro"}},
		}},
	})

	event, err := newVerifier(testSecret).VerifyEvent(payload, header)
	require.NoError(t, err)
	require.True(t, event.Recognized())

	hint := event.Hint
	assert.Equal(t, types.TriggerSubscriptionCanceled, hint.Kind)
	assert.Equal(t, "cus_1", hint.CustomerID)
	assert.Equal(t, "sub_1", hint.SubscriptionID)
	assert.Equal(t, "price_pro", hint.PlanIdentifier)
	assert.Equal(t, "t1", hint.TenantID)
	assert.Equal(t, int64(1700000000), hint.OccurredAt.Unix())
}

func TestClassifyCheckoutEvent(t *testing.T) {
	payload, header := signEvent(t, EventCheckoutSessionCompleted, map[string]any{
		"id":                  "cs_1",
		"object":              "checkout.session",
		"customer":            map[string]any{"id": "cus_2", "object": "customer"},
		"subscription":        "sub_2",
		"client_reference_id": "t2",
		"customer_details":    map[string]any{"email": " Owner@Clinic.Test "},
	})

	event, err := newVerifier(testSecret).VerifyEvent(payload, header)
	require.NoError(t, err)

	hint := event.Hint
	assert.Equal(t, types.TriggerCheckoutCompleted, hint.Kind)
	assert.Equal(t, "cus_2", hint.CustomerID)
	assert.Equal(t, "sub_2", hint.SubscriptionID)
	assert.Equal(t, "t2", hint.TenantID)
	assert.Equal(t, "owner@clinic.test", hint.Email)
}

func TestClassifyInvoiceEvent(t *testing.T) {
	payload, header := signEvent(t, EventInvoicePaid, map[string]any{
		"id":             "in_1",
		"object":         "invoice",
		"customer":       "cus_3",
		"customer_email": "billing@clinic.test",
		"parent": map[string]any{
			"subscription_details": map[string]any{"subscription": "sub_3"},
		},
		"lines": map[string]any{"object": "list", "data": []any{
			map[string]any{"pricing": map[string]any{"price_details": map[string]any{"price": "price_starter"}}},
		}},
	})

	event, err := newVerifier(testSecret).VerifyEvent(payload, header)
	require.NoError(t, err)

	hint := event.Hint
	assert.Equal(t, types.TriggerInvoicePaid, hint.Kind)
	assert.Equal(t, "sub_3", hint.SubscriptionID)
	assert.Equal(t, "price_starter", hint.PlanIdentifier)
	assert.Equal(t, "billing@clinic.test", hint.Email)
}
