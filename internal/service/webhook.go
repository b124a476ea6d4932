package service

import (
	"context"
	"time"

	"github.com/flexprice/tiersync/internal/api/dto"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/types"
)

// WebhookService ingests billing provider webhooks. A delivery only selects
// the tenant to reconcile, its payload is never trusted for the tier.
type WebhookService interface {
	// HandleWebhook returns an error only when the delivery must not be
	// acknowledged: a bad signature or a missing webhook secret.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error)
}

type webhookService struct {
	ServiceParams
	reconciler Reconciler
	dispatcher ReconciliationDispatcher
}

func NewWebhookService(params ServiceParams, reconciler Reconciler, dispatcher ReconciliationDispatcher) WebhookService {
	return &webhookService{
		ServiceParams: params,
		reconciler:    reconciler,
		dispatcher:    dispatcher,
	}
}

func (s *webhookService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error) {
	log := s.Logger.WithContext(ctx)

	event, err := s.EventVerifier.VerifyEvent(payload, signature)
	if err != nil {
		if ierr.IsInvalidSignature(err) {
			log.Warnw("rejected webhook with invalid signature", "error", err)
		} else {
			log.Errorw("failed to verify webhook", "error", err)
		}
		return nil, err
	}

	resp := &dto.WebhookResponse{
		Received:  true,
		EventID:   event.ID,
		EventType: event.Type,
	}

	if event.Malformed {
		// redelivery would carry the same payload
		log.Warnw("acknowledging webhook with unreadable data object",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		resp.Ignored = true
		return resp, nil
	}

	if !event.Recognized() {
		log.Debugw("ignoring unhandled webhook event",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		resp.Ignored = true
		return resp, nil
	}

	hint := event.Hint
	s.Sentry.MonitorWebhookLag(ctx, event.Type, hint.OccurredAt)

	tenantID, err := s.resolveTenant(ctx, hint)
	if err != nil {
		// acknowledged anyway, a redelivery cannot resolve it either
		log.Warnw("webhook could not be resolved to a tenant",
			"event_id", event.ID,
			"event_type", event.Type,
			"customer_id", hint.CustomerID,
			"subscription_id", hint.SubscriptionID,
			"error", err,
		)
		return resp, nil
	}
	resp.TenantResolved = true
	hint.TenantID = tenantID
	ctx = types.SetTenantID(ctx, tenantID)
	log = s.Logger.WithContext(ctx)

	occurredAt := hint.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	if err := s.BillingRecordRepo.TouchEvent(ctx, tenantID, occurredAt); err != nil {
		log.Warnw("failed to record webhook activity", "tenant_id", tenantID, "error", err)
	}

	queued, err := s.dispatcher.Dispatch(ctx, &types.ReconciliationRequest{
		TenantID: tenantID,
		Event:    hint,
	})
	resp.Queued = queued
	if err != nil {
		// handled by the sweep and the next trigger, not by redelivery
		log.Errorw("webhook reconciliation failed",
			"tenant_id", tenantID,
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		s.Sentry.CaptureException(err)
	}

	return resp, nil
}

// resolveTenant maps a hint to a tenant, trying the most specific
// reference first.
func (s *webhookService) resolveTenant(ctx context.Context, hint *types.ReconciliationEvent) (string, error) {
	if hint.CustomerID != "" {
		rec, err := s.BillingRecordRepo.FindByCustomerID(ctx, hint.CustomerID)
		if err == nil {
			return rec.TenantID, nil
		}
		if !ierr.IsNotFound(err) {
			return "", err
		}
	}

	if hint.SubscriptionID != "" {
		rec, err := s.BillingRecordRepo.FindBySubscriptionID(ctx, hint.SubscriptionID)
		if err == nil {
			return rec.TenantID, nil
		}
		if !ierr.IsNotFound(err) {
			return "", err
		}
	}

	// metadata we attached at checkout, before the customer was linked
	if hint.TenantID != "" {
		t, err := s.TenantRepo.GetByID(ctx, hint.TenantID)
		if err == nil {
			s.linkCustomer(ctx, t.ID, hint)
			return t.ID, nil
		}
		if !ierr.IsTenantNotFound(err) && !ierr.IsNotFound(err) {
			return "", err
		}
	}

	if hint.Email != "" {
		t, err := s.TenantRepo.GetByContactEmail(ctx, hint.Email)
		if err == nil {
			return t.ID, nil
		}
		if !ierr.IsTenantNotFound(err) && !ierr.IsNotFound(err) {
			return "", err
		}
	}

	return "", ierr.NewError("tenant not found for webhook").
		WithHint("The webhook does not reference a known tenant").
		WithReportableDetails(map[string]any{
			"customer_id":     hint.CustomerID,
			"subscription_id": hint.SubscriptionID,
			"tenant_id":       hint.TenantID,
		}).
		Mark(ierr.ErrTenantNotFound)
}

// linkCustomer records the customer of a checkout we started for the
// tenant, so later deliveries resolve by customer id.
func (s *webhookService) linkCustomer(ctx context.Context, tenantID string, hint *types.ReconciliationEvent) {
	if hint.CustomerID == "" || hint.Kind != types.TriggerCheckoutCompleted {
		return
	}
	if err := s.reconciler.AttachCustomer(ctx, tenantID, hint.CustomerID, hint.Kind); err != nil {
		s.Logger.WithContext(ctx).Warnw("failed to link customer from checkout",
			"tenant_id", tenantID,
			"customer_id", hint.CustomerID,
			"error", err,
		)
	}
}
