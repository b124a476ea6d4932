package service

import (
	"context"
	"time"

	"github.com/flexprice/tiersync/internal/api/dto"
	"github.com/flexprice/tiersync/internal/cache"
	"github.com/flexprice/tiersync/internal/domain/billingprovider"
	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
)

// BillingService is the tenant facing billing surface: the tier read path,
// on-demand sync, and the provider session and cancellation flows.
type BillingService interface {
	// GetCurrentTier is a pure read and never contacts the provider
	GetCurrentTier(ctx context.Context, tenantID string) (*dto.CurrentTierResponse, error)
	SyncNow(ctx context.Context, tenantID string) (*dto.SyncResponse, error)
	CreateCheckoutSession(ctx context.Context, tenantID string, req dto.CreateCheckoutSessionRequest) (*dto.RedirectResponse, error)
	CreatePortalSession(ctx context.Context, tenantID string, req dto.CreatePortalSessionRequest) (*dto.RedirectResponse, error)
	ScheduleCancellation(ctx context.Context, tenantID string) (*dto.CancelSubscriptionResponse, error)
}

type billingService struct {
	ServiceParams
	reconciler Reconciler
}

func NewBillingService(params ServiceParams, reconciler Reconciler) BillingService {
	return &billingService{
		ServiceParams: params,
		reconciler:    reconciler,
	}
}

func (s *billingService) GetCurrentTier(ctx context.Context, tenantID string) (*dto.CurrentTierResponse, error) {
	key := cache.TierKey(tenantID)
	if s.Cache != nil {
		if v, ok := s.Cache.Get(ctx, key); ok {
			if resp, ok := v.(*dto.CurrentTierResponse); ok {
				c := *resp
				return &c, nil
			}
		}
	}

	record, err := s.BillingRecordRepo.Get(ctx, tenantID)
	if ierr.IsNotFound(err) {
		// not reconciled yet, the record is created by the first pass
		record = billingrecord.NewDefault(tenantID)
	} else if err != nil {
		return nil, err
	}

	resp := dto.NewCurrentTierResponse(record)
	if s.Cache != nil {
		c := *resp
		s.Cache.Set(ctx, key, &c, s.Config.Billing.ReadCacheTTL)
	}
	return resp, nil
}

func (s *billingService) SyncNow(ctx context.Context, tenantID string) (*dto.SyncResponse, error) {
	out, err := s.reconciler.Reconcile(ctx, tenantID, &types.ReconciliationEvent{
		Kind:       types.TriggerManualSync,
		TenantID:   tenantID,
		OccurredAt: time.Now().UTC(),
	})
	if err == nil {
		return &dto.SyncResponse{
			Tier:    out.Tier,
			Changed: out.Changed,
			Source:  out.Source,
		}, nil
	}

	// the refresh failed but the persisted tier is still a valid answer
	if out != nil && (ierr.IsProviderUnavailable(err) || ierr.IsVersionConflict(err)) {
		s.Logger.WithContext(ctx).Warnw("sync failed, returning cached tier",
			"tenant_id", tenantID,
			"tier", out.Tier,
			"error", err,
		)
		return &dto.SyncResponse{
			Tier:          out.Tier,
			Changed:       false,
			Source:        types.TierSourceCached,
			RefreshFailed: true,
		}, nil
	}
	return nil, err
}

func (s *billingService) CreateCheckoutSession(ctx context.Context, tenantID string, req dto.CreateCheckoutSessionRequest) (*dto.RedirectResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.Catalog.IsKnown(req.PlanIdentifier) {
		return nil, ierr.NewError("unknown plan identifier").
			WithHint("The selected plan is not available").
			WithReportableDetails(map[string]any{"plan_identifier": req.PlanIdentifier}).
			Mark(ierr.ErrUnknownPlan)
	}

	customerID, email, err := s.ensureCustomer(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	url, err := s.Gateway.CreateCheckoutSession(ctx, &billingprovider.CheckoutSessionRequest{
		TenantID:       tenantID,
		CustomerID:     customerID,
		Email:          email,
		PlanIdentifier: req.PlanIdentifier,
		SuccessURL:     lo.CoalesceOrEmpty(req.SuccessURL, s.Config.Billing.Checkout.SuccessURL),
		CancelURL:      lo.CoalesceOrEmpty(req.CancelURL, s.Config.Billing.Checkout.CancelURL),
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("checkout session created",
		"tenant_id", tenantID,
		"customer_id", customerID,
		"plan_identifier", req.PlanIdentifier,
	)
	return &dto.RedirectResponse{RedirectURL: url}, nil
}

// ensureCustomer returns the tenant's billing customer, finding or creating
// it by contact email and linking it through the reconciler's write path.
func (s *billingService) ensureCustomer(ctx context.Context, tenantID string) (string, string, error) {
	record, err := s.BillingRecordRepo.GetOrCreate(ctx, tenantID)
	if err != nil {
		return "", "", err
	}
	if id := record.CustomerID(); id != "" {
		return id, "", nil
	}

	t, err := s.TenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return "", "", err
	}
	if t.ContactEmail == "" {
		return "", "", ierr.NewError("tenant has no contact email").
			WithHint("A contact email is required before subscribing").
			WithReportableDetails(map[string]any{"tenant_id": tenantID}).
			Mark(ierr.ErrValidation)
	}

	customer, err := s.Gateway.FindCustomerByEmail(ctx, t.ContactEmail)
	if err != nil {
		return "", "", err
	}
	if customer != nil {
		owned, err := customerOwnedElsewhere(ctx, s.ServiceParams, tenantID, customer.ID)
		if err != nil {
			return "", "", err
		}
		if owned {
			customer = nil
		}
	}
	if customer == nil {
		customer, err = s.Gateway.CreateCustomer(ctx, t.ContactEmail, tenantID)
		if err != nil {
			return "", "", err
		}
	}

	if err := s.reconciler.AttachCustomer(ctx, tenantID, customer.ID, types.TriggerCheckoutStarted); err != nil {
		// the session can still be created, the webhook links the customer later
		s.Logger.WithContext(ctx).Warnw("failed to link billing customer",
			"tenant_id", tenantID,
			"customer_id", customer.ID,
			"error", err,
		)
	}
	return customer.ID, t.ContactEmail, nil
}

func (s *billingService) CreatePortalSession(ctx context.Context, tenantID string, req dto.CreatePortalSessionRequest) (*dto.RedirectResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	record, err := s.BillingRecordRepo.Get(ctx, tenantID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if record == nil || record.CustomerID() == "" {
		return nil, ierr.NewError("tenant has no billing account").
			WithHint("Subscribe to a plan before opening the billing portal").
			WithReportableDetails(map[string]any{"tenant_id": tenantID}).
			Mark(ierr.ErrInvalidOperation)
	}

	url, err := s.Gateway.CreatePortalSession(ctx, &billingprovider.PortalSessionRequest{
		CustomerID: record.CustomerID(),
		ReturnURL:  lo.CoalesceOrEmpty(req.ReturnURL, s.Config.Billing.Portal.ReturnURL),
	})
	if err != nil {
		return nil, err
	}
	return &dto.RedirectResponse{RedirectURL: url}, nil
}

func (s *billingService) ScheduleCancellation(ctx context.Context, tenantID string) (*dto.CancelSubscriptionResponse, error) {
	record, err := s.BillingRecordRepo.Get(ctx, tenantID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if record == nil || record.SubscriptionID() == "" {
		return nil, ierr.NewError("tenant has no active subscription").
			WithHint("There is no subscription to cancel").
			WithReportableDetails(map[string]any{"tenant_id": tenantID}).
			Mark(ierr.ErrInvalidOperation)
	}

	sub, err := s.Gateway.ScheduleCancellation(ctx, record.SubscriptionID())
	if err != nil {
		return nil, err
	}

	resp := &dto.CancelSubscriptionResponse{
		SubscriptionID:    sub.ID,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		Tier:              record.Tier,
	}

	// access continues until period end, so this normally changes nothing
	out, err := s.reconciler.Reconcile(ctx, tenantID, &types.ReconciliationEvent{
		Kind:           types.TriggerCancellation,
		TenantID:       tenantID,
		SubscriptionID: sub.ID,
		OccurredAt:     time.Now().UTC(),
	})
	if err != nil {
		s.Logger.WithContext(ctx).Warnw("reconciliation after cancellation failed",
			"tenant_id", tenantID,
			"subscription_id", sub.ID,
			"error", err,
		)
	}
	if out != nil {
		resp.Tier = out.Tier
	}
	return resp, nil
}
