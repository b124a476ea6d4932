package svix

import (
	"context"
	"time"

	"github.com/flexprice/tiersync/internal/types"
)

// TierUpdatedPayload is the body of a tenant.tier.updated message
type TierUpdatedPayload struct {
	TenantID    string                      `json:"tenant_id"`
	OldTier     types.Tier                  `json:"old_tier"`
	NewTier     types.Tier                  `json:"new_tier"`
	Source      types.TierSource            `json:"source"`
	TriggerKind types.ReconciliationTrigger `json:"trigger"`
	AuditID     string                      `json:"audit_id"`
	ChangedAt   time.Time                   `json:"changed_at"`
}

// NotifyTierUpdated sends the tier change to the tenant's webhook
// endpoints. The audit entry id is the idempotency key.
func (c *Client) NotifyTierUpdated(ctx context.Context, payload *TierUpdatedPayload) error {
	if !c.Enabled() {
		return nil
	}

	appID, err := c.GetOrCreateApplication(ctx, payload.TenantID)
	if err != nil {
		return err
	}

	return c.SendMessage(ctx, appID, EventTierUpdated, payload.AuditID, payload)
}
