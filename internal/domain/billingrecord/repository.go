package billingrecord

import (
	"context"
	"time"
)

// Field names a persisted column of the billing record that an update may
// set. Updates only touch the fields they list.
type Field string

const (
	FieldTier                  Field = "tier"
	FieldBillingCustomerID     Field = "billing_customer_id"
	FieldBillingSubscriptionID Field = "billing_subscription_id"
	FieldIsManualOverride      Field = "is_manual_override"
	FieldBonusExpiresAt        Field = "bonus_expires_at"
	FieldBonusTier             Field = "bonus_tier"
	FieldCustomLimits          Field = "custom_limits"
	FieldLastReconciledAt      Field = "last_reconciled_at"
)

// StaleFilter selects paid tenants that have not heard from the billing
// provider recently. Manual overrides are never selected.
type StaleFilter struct {
	EventBefore time.Time
	Limit       int
	// AfterTenantID pages through the result in tenant_id order
	AfterTenantID string
}

type Repository interface {
	// Get returns ErrNotFound when the tenant has no record yet
	Get(ctx context.Context, tenantID string) (*BillingRecord, error)
	// GetOrCreate lazily creates the default free record
	GetOrCreate(ctx context.Context, tenantID string) (*BillingRecord, error)
	// Update writes the listed fields from record only if the stored
	// version still equals expectedVersion, and bumps the version.
	// A mismatch returns ErrVersionConflict and writes nothing.
	Update(ctx context.Context, record *BillingRecord, expectedVersion int64, fields ...Field) error
	// TouchEvent records provider activity without bumping the version
	TouchEvent(ctx context.Context, tenantID string, at time.Time) error
	FindByCustomerID(ctx context.Context, customerID string) (*BillingRecord, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*BillingRecord, error)
	ListStale(ctx context.Context, filter StaleFilter) ([]*BillingRecord, error)
}
