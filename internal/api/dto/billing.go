package dto

import (
	"time"

	"github.com/flexprice/tiersync/internal/domain/auditlog"
	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/flexprice/tiersync/internal/validator"
	"github.com/samber/lo"
)

// CurrentTierResponse is the cheap read used by feature gating
type CurrentTierResponse struct {
	TenantID       string     `json:"tenant_id"`
	Tier           types.Tier `json:"tier"`
	IsOverride     bool       `json:"is_override"`
	BonusExpiresAt *time.Time `json:"bonus_expires_at,omitempty"`
}

func NewCurrentTierResponse(r *billingrecord.BillingRecord) *CurrentTierResponse {
	return &CurrentTierResponse{
		TenantID:       r.TenantID,
		Tier:           r.Tier,
		IsOverride:     r.IsManualOverride,
		BonusExpiresAt: r.BonusExpiresAt,
	}
}

type SyncRequest struct {
	// TenantID defaults to the caller's tenant. Only operators may name
	// another tenant.
	TenantID string `json:"tenant_id,omitempty" validate:"omitempty,max=50"`
}

func (r *SyncRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// SyncResponse reports the outcome of an on-demand reconciliation. When the
// billing provider could not be reached the persisted tier is returned with
// refresh_failed set and source "cached".
type SyncResponse struct {
	Tier          types.Tier       `json:"tier"`
	Changed       bool             `json:"changed"`
	Source        types.TierSource `json:"source"`
	RefreshFailed bool             `json:"refresh_failed"`
}

type CreateCheckoutSessionRequest struct {
	PlanIdentifier string `json:"plan_identifier" validate:"required"`
	SuccessURL     string `json:"success_url,omitempty" validate:"omitempty,url"`
	CancelURL      string `json:"cancel_url,omitempty" validate:"omitempty,url"`
}

func (r *CreateCheckoutSessionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type CreatePortalSessionRequest struct {
	ReturnURL string `json:"return_url,omitempty" validate:"omitempty,url"`
}

func (r *CreatePortalSessionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type RedirectResponse struct {
	RedirectURL string `json:"redirect_url"`
}

type CancelSubscriptionResponse struct {
	SubscriptionID    string     `json:"subscription_id"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	Tier              types.Tier `json:"tier"`
}

// UpdateBillingRecordRequest is the operator override. Nil fields are left
// untouched.
type UpdateBillingRecordRequest struct {
	IsManualOverride *bool                       `json:"is_manual_override,omitempty"`
	Tier             *types.Tier                 `json:"tier,omitempty"`
	CustomLimits     *billingrecord.CustomLimits `json:"custom_limits,omitempty"`
	BonusExpiresAt   *time.Time                  `json:"bonus_expires_at,omitempty"`
	BonusTier        *types.Tier                 `json:"bonus_tier,omitempty"`
	ClearBonus       bool                        `json:"clear_bonus,omitempty"`
	Reason           string                      `json:"reason,omitempty" validate:"omitempty,max=255"`
}

func (r *UpdateBillingRecordRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.IsManualOverride == nil && r.Tier == nil && r.CustomLimits == nil &&
		r.BonusExpiresAt == nil && r.BonusTier == nil && !r.ClearBonus {
		return ierr.NewError("empty update").
			WithHint("At least one billing field must be provided").
			Mark(ierr.ErrValidation)
	}
	if r.Tier != nil {
		if err := r.Tier.Validate(); err != nil {
			return err
		}
	}
	if r.BonusTier != nil {
		if err := r.BonusTier.Validate(); err != nil {
			return err
		}
	}
	if r.CustomLimits != nil {
		if err := r.CustomLimits.Validate(); err != nil {
			return err
		}
	}
	if r.ClearBonus && (r.BonusExpiresAt != nil || r.BonusTier != nil) {
		return ierr.NewError("conflicting bonus fields").
			WithHint("clear_bonus cannot be combined with bonus_expires_at or bonus_tier").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Apply writes the requested fields onto target and returns the fields
// that were set.
func (r *UpdateBillingRecordRequest) Apply(target *billingrecord.BillingRecord) []billingrecord.Field {
	var fields []billingrecord.Field
	if r.IsManualOverride != nil {
		target.IsManualOverride = *r.IsManualOverride
		fields = append(fields, billingrecord.FieldIsManualOverride)
	}
	if r.Tier != nil {
		target.Tier = *r.Tier
		fields = append(fields, billingrecord.FieldTier)
	}
	if r.CustomLimits != nil {
		target.CustomLimits = r.CustomLimits.Clone()
		fields = append(fields, billingrecord.FieldCustomLimits)
	}
	if r.ClearBonus {
		target.BonusExpiresAt = nil
		target.BonusTier = nil
		fields = append(fields, billingrecord.FieldBonusExpiresAt, billingrecord.FieldBonusTier)
	}
	if r.BonusExpiresAt != nil {
		target.BonusExpiresAt = lo.ToPtr(r.BonusExpiresAt.UTC())
		fields = append(fields, billingrecord.FieldBonusExpiresAt)
	}
	if r.BonusTier != nil {
		target.BonusTier = lo.ToPtr(*r.BonusTier)
		fields = append(fields, billingrecord.FieldBonusTier)
	}
	return lo.Uniq(fields)
}

// BillingRecordResponse is the operator view of a tenant billing record
type BillingRecordResponse struct {
	*billingrecord.BillingRecord
}

func NewBillingRecordResponse(r *billingrecord.BillingRecord) *BillingRecordResponse {
	return &BillingRecordResponse{BillingRecord: r}
}

type AuditLogResponse struct {
	*auditlog.Entry
}

func NewAuditLogResponses(entries []*auditlog.Entry) []*AuditLogResponse {
	return lo.Map(entries, func(e *auditlog.Entry, _ int) *AuditLogResponse {
		return &AuditLogResponse{Entry: e}
	})
}

// SweepResponse summarises one periodic sweep run
type SweepResponse struct {
	SweepID   string `json:"sweep_id"`
	Scanned   int    `json:"scanned"`
	Changed   int    `json:"changed"`
	Unchanged int    `json:"unchanged"`
	Failed    int    `json:"failed"`
	Duration  string `json:"duration"`
}
