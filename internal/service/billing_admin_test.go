package service

import (
	"testing"
	"time"

	"github.com/flexprice/tiersync/internal/api/dto"
	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/testutil"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BillingAdminServiceSuite struct {
	serviceSuite
	service BillingAdminService
}

func TestBillingAdminService(t *testing.T) {
	suite.Run(t, new(BillingAdminServiceSuite))
}

func (s *BillingAdminServiceSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	params := s.params()
	s.service = NewBillingAdminService(params, NewReconciler(params))
}

func (s *BillingAdminServiceSuite) seedSubscribed(tenantID string, price string, tier types.Tier) {
	rec := billingrecord.NewDefault(tenantID)
	rec.Tier = tier
	rec.BillingCustomerID = lo.ToPtr("cus_" + tenantID)
	rec.BillingSubscriptionID = lo.ToPtr("sub_" + price)
	s.GetStores().BillingRecordRepo.Put(rec)
	s.GetGateway().SetSubscriptions("cus_"+tenantID, testutil.Active(price))
}

func (s *BillingAdminServiceSuite) TestGetBillingRecordNotFound() {
	_, err := s.service.GetBillingRecord(s.GetContext(), "missing")
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *BillingAdminServiceSuite) TestPinEnterpriseWithLimits() {
	s.seedSubscribed("t1", testutil.PriceStarterMonthly, types.TierStarter)
	ctx := types.SetUserID(s.GetContext(), "ops@tiersync.test")

	limits := billingrecord.CustomLimits{"seats": decimal.NewFromInt(250)}
	resp, err := s.service.UpdateBillingRecord(ctx, "t1", dto.UpdateBillingRecordRequest{
		IsManualOverride: lo.ToPtr(true),
		Tier:             lo.ToPtr(types.TierEnterprise),
		CustomLimits:     &limits,
		Reason:           "signed enterprise contract",
	})
	s.Require().NoError(err)
	s.Equal(types.TierEnterprise, resp.Tier)
	s.True(resp.IsManualOverride)
	s.True(resp.CustomLimits.Equal(limits))

	entries := s.GetStores().AuditLogRepo.Entries()
	s.Require().Len(entries, 1)
	s.Equal(types.TriggerOperator, entries[0].TriggerKind)
	s.Equal(types.TierSourceManualOverride, entries[0].Source)
	s.Equal("ops@tiersync.test", entries[0].Actor)

	// the pin survives provider driven reconciliation
	out, err := NewReconciler(s.params()).Reconcile(s.GetContext(), "t1", &types.ReconciliationEvent{Kind: types.TriggerInvoicePaid})
	s.Require().NoError(err)
	s.Equal(types.TierEnterprise, out.Tier)
	s.False(out.Changed)
}

func (s *BillingAdminServiceSuite) TestCustomLimitsRequireEnterprise() {
	s.seedSubscribed("t1", testutil.PriceProMonthly, types.TierPro)

	limits := billingrecord.CustomLimits{"seats": decimal.NewFromInt(10)}
	_, err := s.service.UpdateBillingRecord(s.GetContext(), "t1", dto.UpdateBillingRecordRequest{
		CustomLimits: &limits,
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
	s.Equal(0, s.GetStores().BillingRecordRepo.UpdateCount())
}

func (s *BillingAdminServiceSuite) TestTierRequiresOverride() {
	_, err := s.service.UpdateBillingRecord(s.GetContext(), "t1", dto.UpdateBillingRecordRequest{
		Tier: lo.ToPtr(types.TierPro),
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingAdminServiceSuite) TestEmptyUpdateRejected() {
	_, err := s.service.UpdateBillingRecord(s.GetContext(), "t1", dto.UpdateBillingRecordRequest{})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingAdminServiceSuite) TestReleasingOverrideReconciles() {
	rec := billingrecord.NewDefault("t1")
	rec.Tier = types.TierEnterprise
	rec.IsManualOverride = true
	rec.CustomLimits = billingrecord.CustomLimits{"seats": decimal.NewFromInt(100)}
	rec.BillingCustomerID = lo.ToPtr("cus_t1")
	s.GetStores().BillingRecordRepo.Put(rec)
	s.GetGateway().SetSubscriptions("cus_t1", testutil.Active(testutil.PriceProMonthly))

	resp, err := s.service.UpdateBillingRecord(s.GetContext(), "t1", dto.UpdateBillingRecordRequest{
		IsManualOverride: lo.ToPtr(false),
	})
	s.Require().NoError(err)
	s.False(resp.IsManualOverride)
	s.Equal(types.TierPro, resp.Tier)
	s.Empty(resp.CustomLimits)
	s.Equal(1, s.GetGateway().Calls("list_subscriptions"))
}

func (s *BillingAdminServiceSuite) TestGrantBonusAppliesImmediately() {
	s.seedSubscribed("t1", testutil.PriceStarterMonthly, types.TierStarter)

	expires := s.GetNow().Add(14 * 24 * time.Hour)
	resp, err := s.service.UpdateBillingRecord(s.GetContext(), "t1", dto.UpdateBillingRecordRequest{
		BonusExpiresAt: &expires,
		BonusTier:      lo.ToPtr(types.TierEnterprise),
	})
	s.Require().NoError(err)
	s.Equal(types.TierEnterprise, resp.Tier)
	s.Require().NotNil(resp.BonusExpiresAt)

	// clearing the bonus drops back to the subscription
	resp, err = s.service.UpdateBillingRecord(s.GetContext(), "t1", dto.UpdateBillingRecordRequest{
		ClearBonus: true,
	})
	s.Require().NoError(err)
	s.Equal(types.TierStarter, resp.Tier)
	s.Nil(resp.BonusExpiresAt)
}

func (s *BillingAdminServiceSuite) TestUpdateRetriesConflictOnce() {
	s.seedSubscribed("t1", testutil.PriceProMonthly, types.TierPro)

	store := s.GetStores().BillingRecordRepo
	conflicts := 0
	store.BeforeUpdate = func(tenantID string) {
		if conflicts == 0 {
			conflicts++
			other, err := store.Get(s.GetContext(), tenantID)
			s.Require().NoError(err)
			other.Version++
			store.Put(other)
		}
	}

	resp, err := s.service.UpdateBillingRecord(s.GetContext(), "t1", dto.UpdateBillingRecordRequest{
		IsManualOverride: lo.ToPtr(true),
	})
	s.Require().NoError(err)
	s.True(resp.IsManualOverride)
	s.Equal(1, conflicts)
}

func (s *BillingAdminServiceSuite) TestListAuditLog() {
	s.seedSubscribed("t1", testutil.PriceProMonthly, types.TierStarter)
	reconciler := NewReconciler(s.params())
	_, err := reconciler.Reconcile(s.GetContext(), "t1", &types.ReconciliationEvent{Kind: types.TriggerInvoicePaid})
	s.Require().NoError(err)

	s.GetGateway().SetSubscriptions("cus_t1", testutil.None())
	_, err = reconciler.Reconcile(s.GetContext(), "t1", &types.ReconciliationEvent{Kind: types.TriggerSubscriptionCanceled})
	s.Require().NoError(err)

	resp, err := s.service.ListAuditLog(s.GetContext(), "t1", 0)
	s.Require().NoError(err)
	s.Equal(2, resp.Total)
	s.Equal(types.TierFree, resp.Items[0].NewTier)

	resp, err = s.service.ListAuditLog(s.GetContext(), "t1", 1)
	s.Require().NoError(err)
	s.Len(resp.Items, 1)

	resp, err = s.service.ListAuditLog(s.GetContext(), "other", 10)
	s.Require().NoError(err)
	s.Empty(resp.Items)
}
