package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/pubsub"
	"github.com/flexprice/tiersync/internal/pubsub/memory"
	"github.com/flexprice/tiersync/internal/testutil"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type DispatcherSuite struct {
	serviceSuite
	pubSub     pubsub.PubSub
	dispatcher ReconciliationDispatcher
}

func TestReconciliationDispatcher(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.GetConfig().Reconciliation.Async = true
	s.pubSub = memory.NewPubSub(s.GetLogger())

	params := s.params()
	s.dispatcher = NewReconciliationDispatcher(params, NewReconciler(params), s.pubSub)
}

func (s *DispatcherSuite) TearDownTest() {
	s.GetConfig().Reconciliation.Async = false
	_ = s.pubSub.Close()
	s.serviceSuite.TearDownTest()
}

func (s *DispatcherSuite) seedPro(tenantID string) {
	rec := billingrecord.NewDefault(tenantID)
	rec.BillingCustomerID = lo.ToPtr("cus_" + tenantID)
	s.GetStores().BillingRecordRepo.Put(rec)
	s.GetGateway().SetSubscriptions("cus_"+tenantID, testutil.Active(testutil.PriceProMonthly))
}

func (s *DispatcherSuite) TestPublishesWhenAsync() {
	s.seedPro("t1")
	msgs, err := s.pubSub.Subscribe(context.Background(), s.GetConfig().Reconciliation.Topic)
	s.Require().NoError(err)

	ctx := types.SetRequestID(s.GetContext(), "req-1")
	queued, err := s.dispatcher.Dispatch(ctx, &types.ReconciliationRequest{
		TenantID: "t1",
		Event:    &types.ReconciliationEvent{Kind: types.TriggerInvoicePaid, TenantID: "t1"},
	})
	s.Require().NoError(err)
	s.True(queued)

	var msg *message.Message
	select {
	case msg = <-msgs:
	case <-time.After(2 * time.Second):
		s.FailNow("reconciliation request was not published")
	}
	msg.Ack()

	s.Equal("t1", msg.Metadata.Get("tenant_id"))
	s.Equal("req-1", msg.Metadata.Get("request_id"))
	s.Equal(string(types.TriggerInvoicePaid), msg.Metadata.Get("trigger"))

	// nothing ran inline
	s.Equal(0, s.GetGateway().TotalCalls())
}

func (s *DispatcherSuite) TestFallsBackInlineWhenPublishFails() {
	s.seedPro("t1")
	s.Require().NoError(s.pubSub.Close())

	queued, err := s.dispatcher.Dispatch(s.GetContext(), &types.ReconciliationRequest{
		TenantID: "t1",
		Event:    &types.ReconciliationEvent{Kind: types.TriggerSubscriptionUpdated, TenantID: "t1"},
	})
	s.Require().NoError(err)
	s.False(queued)

	rec, err := s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierPro, rec.Tier)
}

func (s *DispatcherSuite) TestInlineWhenSync() {
	s.GetConfig().Reconciliation.Async = false
	s.seedPro("t1")

	queued, err := s.dispatcher.Dispatch(s.GetContext(), &types.ReconciliationRequest{TenantID: "t1"})
	s.Require().NoError(err)
	s.False(queued)
	s.Equal(1, s.GetGateway().Calls("list_subscriptions"))
}

func (s *DispatcherSuite) TestHandleMessageReconciles() {
	s.seedPro("t1")
	payload, err := json.Marshal(&types.ReconciliationRequest{
		TenantID: "t1",
		Event:    &types.ReconciliationEvent{Kind: types.TriggerInvoicePaid, TenantID: "t1"},
	})
	s.Require().NoError(err)

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(s.GetContext())
	s.Require().NoError(s.dispatcher.(*reconciliationDispatcher).handleMessage(msg))

	rec, err := s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierPro, rec.Tier)

	entries := s.GetStores().AuditLogRepo.Entries()
	s.Require().Len(entries, 1)
	s.Equal(types.TriggerInvoicePaid, entries[0].TriggerKind)
}

func (s *DispatcherSuite) TestHandleMessageRejectsMalformedPayload() {
	msg := message.NewMessage(watermill.NewUUID(), []byte("{not json"))
	err := s.dispatcher.(*reconciliationDispatcher).handleMessage(msg)
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *DispatcherSuite) TestHandleMessageSurfacesOutage() {
	s.seedPro("t1")
	s.GetGateway().SetSubscriptions("cus_t1", testutil.Unavailable())
	payload, err := json.Marshal(&types.ReconciliationRequest{TenantID: "t1"})
	s.Require().NoError(err)

	err = s.dispatcher.(*reconciliationDispatcher).handleMessage(message.NewMessage(watermill.NewUUID(), payload))
	s.Require().Error(err)
	s.True(ierr.IsProviderUnavailable(err))
}
