package service

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	ierr "github.com/flexprice/tiersync/internal/errors"
	stripeintegration "github.com/flexprice/tiersync/internal/integration/stripe"
	"github.com/flexprice/tiersync/internal/testutil"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

type WebhookServiceSuite struct {
	serviceSuite
	service WebhookService
}

func TestWebhookService(t *testing.T) {
	suite.Run(t, new(WebhookServiceSuite))
}

func (s *WebhookServiceSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.GetConfig().Billing.Stripe.WebhookSecret = testWebhookSecret
	s.GetConfig().Reconciliation.Async = false

	params := s.params()
	params.EventVerifier = stripeintegration.NewWebhookVerifier(s.GetConfig(), s.GetLogger())
	reconciler := NewReconciler(params)
	s.service = NewWebhookService(params, reconciler, NewReconciliationDispatcher(params, reconciler, nil))
}

// signed builds a Stripe event envelope and signs it like Stripe does
func (s *WebhookServiceSuite) signed(eventType string, object map[string]any) ([]byte, string) {
	envelope := map[string]any{
		"id":          fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"object":      "event",
		"type":        eventType,
		"created":     time.Now().Unix(),
		"api_version": "2025-03-31.basil",
		"data":        map[string]any{"object": object},
	}
	payload, err := json.Marshal(envelope)
	s.Require().NoError(err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Payload, signed.Header
}

func subscriptionObject(id, customerID, status, price string) map[string]any {
	return map[string]any{
		"id":       id,
		"object":   "subscription",
		"customer": customerID,
		"status":   status,
		"items": map[string]any{
			"object": "list",
			"data": []any{
				map[string]any{"price": map[string]any{"id": price}},
			},
		},
	}
}

func (s *WebhookServiceSuite) seedCustomer(tenantID, customerID string, tier types.Tier) {
	rec := billingrecord.NewDefault(tenantID)
	rec.Tier = tier
	rec.BillingCustomerID = lo.ToPtr(customerID)
	s.GetStores().BillingRecordRepo.Put(rec)
}

func (s *WebhookServiceSuite) TestInvalidSignatureRejected() {
	s.seedCustomer("t1", "cus_1", types.TierFree)
	payload, _ := s.signed("customer.subscription.updated", subscriptionObject("sub_1", "cus_1", "active", testutil.PriceProMonthly))

	_, err := s.service.HandleWebhook(s.GetContext(), payload, "t=1,v1=deadbeef")
	s.Require().Error(err)
	s.True(ierr.IsInvalidSignature(err))
	s.Equal(0, s.GetGateway().TotalCalls())

	_, err = s.service.HandleWebhook(s.GetContext(), payload, "")
	s.True(ierr.IsInvalidSignature(err))
}

func (s *WebhookServiceSuite) TestMissingSecretIsSystemError() {
	s.GetConfig().Billing.Stripe.WebhookSecret = ""
	defer func() { s.GetConfig().Billing.Stripe.WebhookSecret = testWebhookSecret }()

	params := s.params()
	params.EventVerifier = stripeintegration.NewWebhookVerifier(s.GetConfig(), s.GetLogger())
	reconciler := NewReconciler(params)
	svc := NewWebhookService(params, reconciler, NewReconciliationDispatcher(params, reconciler, nil))

	payload, header := s.signed("invoice.paid", map[string]any{"id": "in_1", "object": "invoice", "customer": "cus_1"})
	_, err := svc.HandleWebhook(s.GetContext(), payload, header)
	s.Require().Error(err)
	s.False(ierr.IsInvalidSignature(err))
	s.True(ierr.HTTPStatusFromErr(err) >= 500)
}

func (s *WebhookServiceSuite) TestUnknownEventIgnored() {
	payload, header := s.signed("customer.created", map[string]any{"id": "cus_1", "object": "customer"})

	resp, err := s.service.HandleWebhook(s.GetContext(), payload, header)
	s.Require().NoError(err)
	s.True(resp.Received)
	s.True(resp.Ignored)
	s.Equal(0, s.GetGateway().TotalCalls())
}

func (s *WebhookServiceSuite) TestUndecodableEventAcknowledged() {
	s.seedCustomer("t1", "cus_1", types.TierFree)
	payload, header := s.signed("customer.subscription.updated", map[string]any{
		"id":       "sub_1",
		"object":   "subscription",
		"customer": 12345,
	})

	resp, err := s.service.HandleWebhook(s.GetContext(), payload, header)
	s.Require().NoError(err)
	s.True(resp.Received)
	s.True(resp.Ignored)
	s.False(resp.TenantResolved)
	s.Equal("customer.subscription.updated", resp.EventType)
	s.Equal(0, s.GetGateway().TotalCalls())

	rec, err := s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierFree, rec.Tier)
}

func (s *WebhookServiceSuite) TestSubscriptionUpdatedPullsProviderState() {
	s.seedCustomer("t1", "cus_1", types.TierFree)
	// the payload claims enterprise, the provider says starter
	s.GetGateway().SetSubscriptions("cus_1", testutil.Active(testutil.PriceStarterMonthly))
	payload, header := s.signed("customer.subscription.updated",
		subscriptionObject("sub_x", "cus_1", "active", testutil.PriceEnterprise))

	resp, err := s.service.HandleWebhook(s.GetContext(), payload, header)
	s.Require().NoError(err)
	s.True(resp.TenantResolved)
	s.False(resp.Queued)

	rec, err := s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierStarter, rec.Tier)
	s.NotNil(rec.LastEventAt)
}

func (s *WebhookServiceSuite) TestSubscriptionDeletedDowngrades() {
	s.seedCustomer("t1", "cus_1", types.TierPro)
	s.GetGateway().SetSubscriptions("cus_1", testutil.None())
	payload, header := s.signed("customer.subscription.deleted",
		subscriptionObject("sub_1", "cus_1", "canceled", testutil.PriceProMonthly))

	_, err := s.service.HandleWebhook(s.GetContext(), payload, header)
	s.Require().NoError(err)

	rec, err := s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierFree, rec.Tier)

	entries := s.GetStores().AuditLogRepo.Entries()
	s.Require().Len(entries, 1)
	s.Equal(types.TriggerSubscriptionCanceled, entries[0].TriggerKind)
}

func (s *WebhookServiceSuite) TestDuplicateDeliveryIsNoOp() {
	s.seedCustomer("t1", "cus_1", types.TierFree)
	s.GetGateway().SetSubscriptions("cus_1", testutil.Active(testutil.PriceProMonthly))
	payload, header := s.signed("invoice.paid", map[string]any{
		"id": "in_1", "object": "invoice", "customer": "cus_1", "subscription": "sub_1",
	})

	for i := 0; i < 3; i++ {
		_, err := s.service.HandleWebhook(s.GetContext(), payload, header)
		s.Require().NoError(err)
	}
	s.Len(s.GetStores().AuditLogRepo.Entries(), 1)
}

func (s *WebhookServiceSuite) TestCheckoutCompletedResolvesByClientReference() {
	s.CreateTenant("t1", "owner@clinic.test")
	s.GetGateway().SetSubscriptions("cus_new", testutil.Active(testutil.PriceEnterprise))
	payload, header := s.signed("checkout.session.completed", map[string]any{
		"id":                  "cs_1",
		"object":              "checkout.session",
		"customer":            "cus_new",
		"subscription":        "sub_1",
		"client_reference_id": "t1",
		"customer_details":    map[string]any{"email": "billing@other.test"},
	})

	resp, err := s.service.HandleWebhook(s.GetContext(), payload, header)
	s.Require().NoError(err)
	s.True(resp.TenantResolved)

	rec, err := s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal("cus_new", rec.CustomerID())
	s.Equal(types.TierEnterprise, rec.Tier)
}

func (s *WebhookServiceSuite) TestUnresolvableTenantAcknowledged() {
	payload, header := s.signed("customer.subscription.updated",
		subscriptionObject("sub_ghost", "cus_ghost", "active", testutil.PriceProMonthly))

	resp, err := s.service.HandleWebhook(s.GetContext(), payload, header)
	s.Require().NoError(err)
	s.True(resp.Received)
	s.False(resp.TenantResolved)
	s.Equal(0, s.GetGateway().Calls("list_subscriptions"))
}

func (s *WebhookServiceSuite) TestProviderOutageStillAcknowledged() {
	s.seedCustomer("t1", "cus_1", types.TierPro)
	s.GetGateway().SetSubscriptions("cus_1", testutil.Unavailable())
	payload, header := s.signed("customer.subscription.updated",
		subscriptionObject("sub_1", "cus_1", "active", testutil.PriceProMonthly))

	resp, err := s.service.HandleWebhook(s.GetContext(), payload, header)
	s.Require().NoError(err)
	s.True(resp.TenantResolved)

	rec, err := s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierPro, rec.Tier)
}
