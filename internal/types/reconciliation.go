package types

import (
	"time"

	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/samber/lo"
)

// ReconciliationTrigger names what caused a reconciliation pass.
// It is recorded on every audit log entry as trigger_kind.
type ReconciliationTrigger string

const (
	TriggerCheckoutCompleted    ReconciliationTrigger = "checkout_completed"
	TriggerInvoicePaid          ReconciliationTrigger = "invoice_paid"
	TriggerSubscriptionUpdated  ReconciliationTrigger = "subscription_updated"
	TriggerSubscriptionCanceled ReconciliationTrigger = "subscription_canceled"
	TriggerManualSync           ReconciliationTrigger = "manual_sync"
	TriggerSweep                ReconciliationTrigger = "sweep"
	TriggerCheckoutStarted      ReconciliationTrigger = "checkout_started"
	TriggerCancellation         ReconciliationTrigger = "cancellation_scheduled"
	TriggerOperator             ReconciliationTrigger = "operator"
)

func (t ReconciliationTrigger) Validate() error {
	allowed := []ReconciliationTrigger{
		TriggerCheckoutCompleted,
		TriggerInvoicePaid,
		TriggerSubscriptionUpdated,
		TriggerSubscriptionCanceled,
		TriggerManualSync,
		TriggerSweep,
		TriggerCheckoutStarted,
		TriggerCancellation,
		TriggerOperator,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid reconciliation trigger").
			WithHint("Invalid reconciliation trigger").
			WithReportableDetails(map[string]any{
				"trigger":        t,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TierSource names the precedence rule that decided a tenant's tier
type TierSource string

const (
	TierSourceManualOverride TierSource = "manual_override"
	TierSourceBonus          TierSource = "bonus"
	TierSourceProvider       TierSource = "provider"
	TierSourceNoCustomer     TierSource = "no_customer"
	// TierSourceCached is reported when the provider could not be reached
	// and the persisted tier is returned as-is.
	TierSourceCached TierSource = "cached"
)

// ReconciliationEvent is the hint that selects whom to reconcile.
// It never carries the new tier value itself.
type ReconciliationEvent struct {
	Kind           ReconciliationTrigger `json:"kind"`
	ProviderEvent  string                `json:"provider_event,omitempty"`
	EventID        string                `json:"event_id,omitempty"`
	TenantID       string                `json:"tenant_id,omitempty"`
	CustomerID     string                `json:"customer_id,omitempty"`
	SubscriptionID string                `json:"subscription_id,omitempty"`
	Email          string                `json:"email,omitempty"`
	PlanIdentifier string                `json:"plan_identifier,omitempty"`
	OccurredAt     time.Time             `json:"occurred_at"`
}

// HasTenantHint is true when the event carries anything that can be
// resolved to a tenant.
func (e *ReconciliationEvent) HasTenantHint() bool {
	if e == nil {
		return false
	}
	return e.TenantID != "" || e.CustomerID != "" || e.SubscriptionID != "" || e.Email != ""
}

// ReconciliationRequest is the message exchanged on the asynchronous
// reconciliation topic once a hint has been resolved to a tenant.
type ReconciliationRequest struct {
	TenantID string               `json:"tenant_id"`
	Event    *ReconciliationEvent `json:"event,omitempty"`
}
