package service

import (
	"testing"
	"time"

	"github.com/flexprice/tiersync/internal/api/dto"
	"github.com/flexprice/tiersync/internal/domain/billingprovider"
	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/testutil"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type BillingServiceSuite struct {
	serviceSuite
	service BillingService
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	params := s.params()
	s.service = NewBillingService(params, NewReconciler(params))
}

func (s *BillingServiceSuite) seedSubscribed(tenantID string, tier types.Tier, price string) {
	rec := billingrecord.NewDefault(tenantID)
	rec.Tier = tier
	rec.BillingCustomerID = lo.ToPtr("cus_" + tenantID)
	rec.BillingSubscriptionID = lo.ToPtr("sub_" + price)
	s.GetStores().BillingRecordRepo.Put(rec)
	s.GetGateway().SetSubscriptions("cus_"+tenantID, testutil.Active(price))
}

func (s *BillingServiceSuite) TestGetCurrentTierDefaultsToFree() {
	resp, err := s.service.GetCurrentTier(s.GetContext(), "t_new")
	s.Require().NoError(err)
	s.Equal(types.TierFree, resp.Tier)
	s.False(resp.IsOverride)

	// a read never creates the record or calls the provider
	_, err = s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t_new")
	s.True(ierr.IsNotFound(err))
	s.Equal(0, s.GetGateway().TotalCalls())
}

func (s *BillingServiceSuite) TestGetCurrentTierReportsOverrideAndBonus() {
	expires := s.GetNow().Add(72 * time.Hour)
	rec := billingrecord.NewDefault("t1")
	rec.Tier = types.TierEnterprise
	rec.IsManualOverride = true
	rec.BonusExpiresAt = &expires
	s.GetStores().BillingRecordRepo.Put(rec)

	resp, err := s.service.GetCurrentTier(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierEnterprise, resp.Tier)
	s.True(resp.IsOverride)
	s.Require().NotNil(resp.BonusExpiresAt)
	s.True(resp.BonusExpiresAt.Equal(expires))
}

func (s *BillingServiceSuite) TestGetCurrentTierCacheInvalidatedByReconcile() {
	s.seedSubscribed("t1", types.TierStarter, testutil.PriceStarterMonthly)

	resp, err := s.service.GetCurrentTier(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierStarter, resp.Tier)

	// callers cannot mutate the cached copy
	resp.Tier = types.TierEnterprise
	again, err := s.service.GetCurrentTier(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierStarter, again.Tier)

	s.GetGateway().SetSubscriptions("cus_t1", testutil.Active(testutil.PriceProMonthly))
	sync, err := s.service.SyncNow(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.True(sync.Changed)

	after, err := s.service.GetCurrentTier(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierPro, after.Tier)
}

func (s *BillingServiceSuite) TestSyncNowReportsDecision() {
	s.seedSubscribed("t1", types.TierPro, testutil.PriceProMonthly)

	resp, err := s.service.SyncNow(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierPro, resp.Tier)
	s.False(resp.Changed)
	s.Equal(types.TierSourceProvider, resp.Source)
	s.False(resp.RefreshFailed)

	entries := s.GetStores().AuditLogRepo.Entries()
	s.Empty(entries)
}

func (s *BillingServiceSuite) TestSyncNowProviderOutageReturnsCachedTier() {
	s.seedSubscribed("t1", types.TierPro, testutil.PriceProMonthly)
	s.GetGateway().SetSubscriptions("cus_t1", testutil.Unavailable())

	resp, err := s.service.SyncNow(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierPro, resp.Tier)
	s.Equal(types.TierSourceCached, resp.Source)
	s.True(resp.RefreshFailed)
	s.False(resp.Changed)
}

func (s *BillingServiceSuite) TestSyncNowManualSyncAudited() {
	s.seedSubscribed("t1", types.TierStarter, testutil.PriceStarterMonthly)
	s.GetGateway().SetSubscriptions("cus_t1", testutil.None())

	resp, err := s.service.SyncNow(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierFree, resp.Tier)
	s.True(resp.Changed)

	entries := s.GetStores().AuditLogRepo.Entries()
	s.Require().Len(entries, 1)
	s.Equal(types.TriggerManualSync, entries[0].TriggerKind)
	s.Equal(types.TierStarter, entries[0].OldTier)
	s.Equal(types.TierFree, entries[0].NewTier)
}

func (s *BillingServiceSuite) TestCheckoutRejectsUnknownPlan() {
	s.CreateTenant("t1", "owner@clinic.test")

	_, err := s.service.CreateCheckoutSession(s.GetContext(), "t1", dto.CreateCheckoutSessionRequest{
		PlanIdentifier: testutil.PriceUnknown,
	})
	s.Require().Error(err)
	s.True(ierr.IsUnknownPlan(err))
	s.Equal(0, s.GetGateway().TotalCalls())
}

func (s *BillingServiceSuite) TestCheckoutRequiresPlan() {
	_, err := s.service.CreateCheckoutSession(s.GetContext(), "t1", dto.CreateCheckoutSessionRequest{})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingServiceSuite) TestCheckoutCreatesAndLinksCustomer() {
	s.CreateTenant("t1", "owner@clinic.test")

	resp, err := s.service.CreateCheckoutSession(s.GetContext(), "t1", dto.CreateCheckoutSessionRequest{
		PlanIdentifier: testutil.PriceProMonthly,
	})
	s.Require().NoError(err)
	s.Equal("https://checkout.test/session/t1/"+testutil.PriceProMonthly, resp.RedirectURL)
	s.Equal(1, s.GetGateway().Calls("create_customer"))

	last := s.GetGateway().LastCheckout
	s.Require().NotNil(last)
	s.Equal("cus_created_1", last.CustomerID)
	s.Equal(s.GetConfig().Billing.Checkout.SuccessURL, last.SuccessURL)
	s.Equal(s.GetConfig().Billing.Checkout.CancelURL, last.CancelURL)

	// the tier is untouched until the provider confirms the subscription
	rec, err := s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal("cus_created_1", rec.CustomerID())
	s.Equal(types.TierFree, rec.Tier)
}

func (s *BillingServiceSuite) TestCheckoutReusesCustomerFoundByEmail() {
	s.CreateTenant("t1", "Owner@Clinic.test")
	s.GetGateway().AddCustomer("cus_existing", "owner@clinic.test")

	_, err := s.service.CreateCheckoutSession(s.GetContext(), "t1", dto.CreateCheckoutSessionRequest{
		PlanIdentifier: testutil.PriceEnterprise,
		SuccessURL:     "https://app.test/custom",
	})
	s.Require().NoError(err)
	s.Equal(0, s.GetGateway().Calls("create_customer"))
	s.Equal("cus_existing", s.GetGateway().LastCheckout.CustomerID)
	s.Equal("https://app.test/custom", s.GetGateway().LastCheckout.SuccessURL)

	// a second checkout uses the linked customer without a lookup
	_, err = s.service.CreateCheckoutSession(s.GetContext(), "t1", dto.CreateCheckoutSessionRequest{
		PlanIdentifier: testutil.PriceProMonthly,
	})
	s.Require().NoError(err)
	s.Equal(1, s.GetGateway().Calls("find_customer_by_email"))
}

func (s *BillingServiceSuite) TestCheckoutSkipsCustomerOwnedByAnotherTenant() {
	s.CreateTenant("t1", "front-desk@clinic.test")
	s.CreateTenant("t2", "front-desk@clinic.test")
	s.GetGateway().AddCustomer("cus_1", "front-desk@clinic.test")
	owner := billingrecord.NewDefault("t1")
	owner.BillingCustomerID = lo.ToPtr("cus_1")
	s.GetStores().BillingRecordRepo.Put(owner)

	_, err := s.service.CreateCheckoutSession(s.GetContext(), "t2", dto.CreateCheckoutSessionRequest{
		PlanIdentifier: testutil.PriceProMonthly,
	})
	s.Require().NoError(err)
	s.Equal(1, s.GetGateway().Calls("create_customer"))
	s.NotEqual("cus_1", s.GetGateway().LastCheckout.CustomerID)

	rec, err := s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t2")
	s.Require().NoError(err)
	s.Equal(s.GetGateway().LastCheckout.CustomerID, rec.CustomerID())
}

func (s *BillingServiceSuite) TestCheckoutWithoutContactEmail() {
	s.CreateTenant("t1", "")

	_, err := s.service.CreateCheckoutSession(s.GetContext(), "t1", dto.CreateCheckoutSessionRequest{
		PlanIdentifier: testutil.PriceProMonthly,
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingServiceSuite) TestPortalRequiresCustomer() {
	_, err := s.service.CreatePortalSession(s.GetContext(), "t1", dto.CreatePortalSessionRequest{})
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *BillingServiceSuite) TestPortalSession() {
	s.seedSubscribed("t1", types.TierPro, testutil.PriceProMonthly)

	resp, err := s.service.CreatePortalSession(s.GetContext(), "t1", dto.CreatePortalSessionRequest{})
	s.Require().NoError(err)
	s.Equal("https://portal.test/session/cus_t1", resp.RedirectURL)
	s.Equal(s.GetConfig().Billing.Portal.ReturnURL, s.GetGateway().LastPortal.ReturnURL)
}

func (s *BillingServiceSuite) TestCancellationKeepsTierUntilPeriodEnd() {
	s.seedSubscribed("t1", types.TierPro, testutil.PriceProMonthly)

	resp, err := s.service.ScheduleCancellation(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.True(resp.CancelAtPeriodEnd)
	s.Equal("sub_"+testutil.PriceProMonthly, resp.SubscriptionID)
	s.Equal(types.TierPro, resp.Tier)
	s.Equal(1, s.GetGateway().Calls("schedule_cancellation"))

	rec, err := s.GetStores().BillingRecordRepo.Get(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierPro, rec.Tier)
}

func (s *BillingServiceSuite) TestCancellationWithoutSubscription() {
	_, err := s.service.ScheduleCancellation(s.GetContext(), "t1")
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Equal(0, s.GetGateway().TotalCalls())
}

func (s *BillingServiceSuite) TestCancellationOfEndedSubscriptionDowngrades() {
	s.seedSubscribed("t1", types.TierPro, testutil.PriceProMonthly)
	ended := &billingprovider.SubscriptionRef{
		ID:       "sub_" + testutil.PriceProMonthly,
		Status:   billingprovider.SubscriptionStatusCanceled,
		PriceIDs: []string{testutil.PriceProMonthly},
	}
	s.GetGateway().SetSubscriptions("cus_t1", testutil.ActiveSubscriptions(ended))

	resp, err := s.service.ScheduleCancellation(s.GetContext(), "t1")
	s.Require().NoError(err)
	s.Equal(types.TierFree, resp.Tier)
}
