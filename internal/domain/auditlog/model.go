package auditlog

import (
	"time"

	"github.com/flexprice/tiersync/internal/types"
	"github.com/lib/pq"
)

// Entry is one append-only row per persisted billing record change
type Entry struct {
	ID            string                      `db:"id" json:"id"`
	TenantID      string                      `db:"tenant_id" json:"tenant_id"`
	OldTier       types.Tier                  `db:"old_tier" json:"old_tier"`
	NewTier       types.Tier                  `db:"new_tier" json:"new_tier"`
	TriggerKind   types.ReconciliationTrigger `db:"trigger_kind" json:"trigger_kind"`
	Source        types.TierSource            `db:"source" json:"source,omitempty"`
	Actor         string                      `db:"actor" json:"actor,omitempty"`
	ChangedFields pq.StringArray              `db:"changed_fields" json:"changed_fields"`
	CreatedAt     time.Time                   `db:"created_at" json:"created_at"`
}

// NewEntry stamps a new entry with an id and the current time
func NewEntry(tenantID string, oldTier, newTier types.Tier, trigger types.ReconciliationTrigger) *Entry {
	return &Entry{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_AUDIT_LOG),
		TenantID:    tenantID,
		OldTier:     oldTier,
		NewTier:     newTier,
		TriggerKind: trigger,
		CreatedAt:   time.Now().UTC(),
	}
}

func (e *Entry) TierChanged() bool {
	return e.OldTier != e.NewTier
}
