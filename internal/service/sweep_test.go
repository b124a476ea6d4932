package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	"github.com/flexprice/tiersync/internal/testutil"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type SweepServiceSuite struct {
	serviceSuite
	service SweepService
}

func TestSweepService(t *testing.T) {
	suite.Run(t, new(SweepServiceSuite))
}

func (s *SweepServiceSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.GetConfig().Sweep.BatchSize = 2
	s.GetConfig().Sweep.Concurrency = 2

	params := s.params()
	s.service = NewSweepService(params, NewReconciler(params))
}

func (s *SweepServiceSuite) seed(tenantID string, tier types.Tier, lastEvent *time.Time) {
	rec := billingrecord.NewDefault(tenantID)
	rec.Tier = tier
	rec.BillingCustomerID = lo.ToPtr("cus_" + tenantID)
	rec.LastEventAt = lastEvent
	if tier == types.TierPro {
		rec.BillingSubscriptionID = lo.ToPtr("sub_" + testutil.PriceProMonthly)
	}
	s.GetStores().BillingRecordRepo.Put(rec)
}

func (s *SweepServiceSuite) TestSweepsOnlyStalePaidTenants() {
	old := s.GetNow().Add(-48 * time.Hour)
	recent := s.GetNow().Add(-time.Hour)

	// canceled without a delivered webhook
	s.seed("t1", types.TierPro, &old)
	s.GetGateway().SetSubscriptions("cus_t1", testutil.None())
	// still paying
	s.seed("t2", types.TierPro, nil)
	s.GetGateway().SetSubscriptions("cus_t2", testutil.Active(testutil.PriceProMonthly))
	// upgraded without a delivered webhook
	s.seed("t3", types.TierStarter, &old)
	s.GetGateway().SetSubscriptions("cus_t3", testutil.Active(testutil.PriceEnterprise))
	// recent activity and free tenants are skipped
	s.seed("t4", types.TierPro, &recent)
	s.seed("t5", types.TierFree, nil)

	resp, err := s.service.Sweep(s.GetContext())
	s.Require().NoError(err)
	s.Equal(3, resp.Scanned)
	s.Equal(2, resp.Changed)
	s.Equal(1, resp.Unchanged)
	s.Equal(0, resp.Failed)
	s.NotEmpty(resp.SweepID)

	s.Equal(3, s.GetGateway().Calls("list_subscriptions"))

	t1, err := s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierFree, t1.Tier)

	t3, err := s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t3")
	s.Require().NoError(err)
	s.Equal(types.TierEnterprise, t3.Tier)

	for _, e := range s.GetStores().AuditLogRepo.Entries() {
		s.Equal(types.TriggerSweep, e.TriggerKind)
	}
}

func (s *SweepServiceSuite) TestSkipsManualOverrides() {
	rec := billingrecord.NewDefault("t1")
	rec.Tier = types.TierEnterprise
	rec.IsManualOverride = true
	s.GetStores().BillingRecordRepo.Put(rec)

	resp, err := s.service.Sweep(s.GetContext())
	s.Require().NoError(err)
	s.Equal(0, resp.Scanned)
	s.Equal(0, s.GetGateway().TotalCalls())
}

func (s *SweepServiceSuite) TestFailuresDoNotStopTheSweep() {
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("t%d", i)
		s.seed(id, types.TierPro, nil)
		s.GetGateway().SetSubscriptions("cus_"+id, testutil.Active(testutil.PriceProMonthly))
	}
	s.GetGateway().SetSubscriptions("cus_t2", testutil.Unavailable())

	resp, err := s.service.Sweep(s.GetContext())
	s.Require().NoError(err)
	s.Equal(5, resp.Scanned)
	s.Equal(1, resp.Failed)
	s.Equal(4, resp.Unchanged)

	t2, err := s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t2")
	s.Require().NoError(err)
	s.Equal(types.TierPro, t2.Tier)
}

func (s *SweepServiceSuite) TestCanceledContextStops() {
	s.seed("t1", types.TierPro, nil)
	ctx, cancel := context.WithCancel(s.GetContext())
	cancel()

	_, err := s.service.Sweep(ctx)
	s.ErrorIs(err, context.Canceled)
	s.Equal(0, s.GetGateway().TotalCalls())
}
