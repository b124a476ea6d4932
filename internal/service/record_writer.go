package service

import (
	"context"
	"time"

	"github.com/flexprice/tiersync/internal/cache"
	"github.com/flexprice/tiersync/internal/domain/auditlog"
	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	"github.com/flexprice/tiersync/internal/svix"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
)

const actorSystem = "system"

// recordWrite is one conditional write of a billing record. target is a
// modified clone of current.
type recordWrite struct {
	current *billingrecord.BillingRecord
	target  *billingrecord.BillingRecord
	trigger types.ReconciliationTrigger
	source  types.TierSource
	actor   string
}

// recordWriter is the single write path for tenant billing records. The
// record update and its audit entry commit together.
type recordWriter struct {
	ServiceParams
}

// diffRecord lists the persisted fields that differ between two records
func diffRecord(current, target *billingrecord.BillingRecord) []billingrecord.Field {
	var fields []billingrecord.Field
	if current.Tier != target.Tier {
		fields = append(fields, billingrecord.FieldTier)
	}
	if lo.FromPtr(current.BillingCustomerID) != lo.FromPtr(target.BillingCustomerID) {
		fields = append(fields, billingrecord.FieldBillingCustomerID)
	}
	if lo.FromPtr(current.BillingSubscriptionID) != lo.FromPtr(target.BillingSubscriptionID) {
		fields = append(fields, billingrecord.FieldBillingSubscriptionID)
	}
	if current.IsManualOverride != target.IsManualOverride {
		fields = append(fields, billingrecord.FieldIsManualOverride)
	}
	if !timePtrEqual(current.BonusExpiresAt, target.BonusExpiresAt) {
		fields = append(fields, billingrecord.FieldBonusExpiresAt)
	}
	if lo.FromPtr(current.BonusTier) != lo.FromPtr(target.BonusTier) {
		fields = append(fields, billingrecord.FieldBonusTier)
	}
	if !current.CustomLimits.Equal(target.CustomLimits) {
		fields = append(fields, billingrecord.FieldCustomLimits)
	}
	return fields
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// write persists the fields that changed. It returns nil fields and no
// error when there is nothing to write. On success current is left as it
// was and target carries the new version.
func (w *recordWriter) write(ctx context.Context, req *recordWrite) ([]billingrecord.Field, error) {
	fields := diffRecord(req.current, req.target)
	if len(fields) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	req.target.LastReconciledAt = &now
	writeFields := append(append([]billingrecord.Field(nil), fields...), billingrecord.FieldLastReconciledAt)

	entry := auditlog.NewEntry(req.current.TenantID, req.current.Tier, req.target.Tier, req.trigger)
	entry.Source = req.source
	entry.Actor = lo.Ternary(req.actor == "", actorSystem, req.actor)
	entry.ChangedFields = lo.Map(fields, func(f billingrecord.Field, _ int) string { return string(f) })

	expectedVersion := req.current.Version
	err := w.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := w.BillingRecordRepo.Update(ctx, req.target, expectedVersion, writeFields...); err != nil {
			return err
		}
		return w.AuditLogRepo.Create(ctx, entry)
	})
	if err != nil {
		req.target.Version = expectedVersion
		return nil, err
	}

	w.afterCommit(ctx, req, entry)
	return fields, nil
}

// afterCommit runs the side effects of a committed write. None of them can
// fail the write.
func (w *recordWriter) afterCommit(ctx context.Context, req *recordWrite, entry *auditlog.Entry) {
	if w.Cache != nil {
		w.Cache.Delete(ctx, cache.TierKey(req.current.TenantID))
	}

	w.Logger.WithContext(ctx).Infow("billing record updated",
		"tenant_id", entry.TenantID,
		"old_tier", entry.OldTier,
		"new_tier", entry.NewTier,
		"trigger", entry.TriggerKind,
		"source", entry.Source,
		"changed_fields", entry.ChangedFields,
		"version", req.target.Version,
	)

	if !entry.TierChanged() {
		return
	}
	w.Metrics.TierChange(string(entry.OldTier), string(entry.NewTier))

	if w.Notifier == nil {
		return
	}
	payload := &svix.TierUpdatedPayload{
		TenantID:    entry.TenantID,
		OldTier:     entry.OldTier,
		NewTier:     entry.NewTier,
		Source:      entry.Source,
		TriggerKind: entry.TriggerKind,
		AuditID:     entry.ID,
		ChangedAt:   entry.CreatedAt,
	}
	notifyCtx := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(notifyCtx, 10*time.Second)
		defer cancel()
		if err := w.Notifier.NotifyTierUpdated(ctx, payload); err != nil {
			w.Logger.Warnw("failed to send tier updated notification",
				"tenant_id", payload.TenantID,
				"audit_id", payload.AuditID,
				"error", err,
			)
		}
	}()
}

// actorFromContext names who caused a write, for the audit log
func actorFromContext(ctx context.Context) string {
	if userID := types.GetUserID(ctx); userID != "" {
		return userID
	}
	return actorSystem
}
