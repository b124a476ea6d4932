package billingrecord

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// BillingRecord is the one row per tenant holding its authoritative tier.
// Provider derived fields are written by the reconciler only; operator
// tooling owns the override, bonus and custom limit fields.
type BillingRecord struct {
	TenantID              string       `db:"tenant_id" json:"tenant_id"`
	Tier                  types.Tier   `db:"tier" json:"tier"`
	BillingCustomerID     *string      `db:"billing_customer_id" json:"billing_customer_id,omitempty"`
	BillingSubscriptionID *string      `db:"billing_subscription_id" json:"billing_subscription_id,omitempty"`
	IsManualOverride      bool         `db:"is_manual_override" json:"is_manual_override"`
	BonusExpiresAt        *time.Time   `db:"bonus_expires_at" json:"bonus_expires_at,omitempty"`
	BonusTier             *types.Tier  `db:"bonus_tier" json:"bonus_tier,omitempty"`
	CustomLimits          CustomLimits `db:"custom_limits" json:"custom_limits,omitempty"`
	LastEventAt           *time.Time   `db:"last_event_at" json:"last_event_at,omitempty"`
	LastReconciledAt      *time.Time   `db:"last_reconciled_at" json:"last_reconciled_at,omitempty"`
	Version               int64        `db:"version" json:"version"`
	CreatedAt             time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time    `db:"updated_at" json:"updated_at"`
}

// NewDefault is the record a tenant gets on its first reconciliation
func NewDefault(tenantID string) *BillingRecord {
	now := time.Now().UTC()
	return &BillingRecord{
		TenantID:  tenantID,
		Tier:      types.TierFree,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// BonusActive reports whether the bonus window is open at the given instant
func (r *BillingRecord) BonusActive(at time.Time) bool {
	return r.BonusExpiresAt != nil && r.BonusExpiresAt.After(at)
}

func (r *BillingRecord) CustomerID() string {
	return lo.FromPtr(r.BillingCustomerID)
}

func (r *BillingRecord) SubscriptionID() string {
	return lo.FromPtr(r.BillingSubscriptionID)
}

// Clone returns a deep copy, so a computed target can be diffed against
// the record it was derived from.
func (r *BillingRecord) Clone() *BillingRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.BillingCustomerID != nil {
		c.BillingCustomerID = lo.ToPtr(*r.BillingCustomerID)
	}
	if r.BillingSubscriptionID != nil {
		c.BillingSubscriptionID = lo.ToPtr(*r.BillingSubscriptionID)
	}
	if r.BonusExpiresAt != nil {
		c.BonusExpiresAt = lo.ToPtr(*r.BonusExpiresAt)
	}
	if r.BonusTier != nil {
		c.BonusTier = lo.ToPtr(*r.BonusTier)
	}
	if r.LastEventAt != nil {
		c.LastEventAt = lo.ToPtr(*r.LastEventAt)
	}
	if r.LastReconciledAt != nil {
		c.LastReconciledAt = lo.ToPtr(*r.LastReconciledAt)
	}
	c.CustomLimits = r.CustomLimits.Clone()
	return &c
}

// CustomLimits are tenant specific numeric caps, only meaningful on the
// enterprise tier. Stored as JSONB.
type CustomLimits map[string]decimal.Decimal

func (l CustomLimits) Clone() CustomLimits {
	if l == nil {
		return nil
	}
	c := make(CustomLimits, len(l))
	for k, v := range l {
		c[k] = v
	}
	return c
}

// Equal compares numerically, so 10 and 10.0 are the same limit
func (l CustomLimits) Equal(other CustomLimits) bool {
	if len(l) != len(other) {
		return false
	}
	for k, v := range l {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

func (l CustomLimits) Validate() error {
	for k, v := range l {
		if k == "" || v.IsNegative() {
			return ierr.NewError("invalid custom limit").
				WithHint("Custom limits need a name and a non-negative value").
				WithReportableDetails(map[string]any{
					"limit": k,
					"value": v.String(),
				}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// Value implements driver.Valuer
func (l CustomLimits) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *CustomLimits) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return ierr.NewError("unsupported custom limits column type").
			WithReportableDetails(map[string]any{"type": v}).
			Mark(ierr.ErrDatabase)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	out := CustomLimits{}
	if err := json.Unmarshal(data, &out); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to decode custom limits").
			Mark(ierr.ErrDatabase)
	}
	*l = out
	return nil
}
