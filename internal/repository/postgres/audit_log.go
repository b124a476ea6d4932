package postgres

import (
	"context"

	"github.com/flexprice/tiersync/internal/domain/auditlog"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/postgres"
)

type auditLogRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewAuditLogRepository(db *postgres.DB, logger *logger.Logger) auditlog.Repository {
	return &auditLogRepository{db: db, logger: logger}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *auditlog.Entry) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO billing_audit_log (
			id, tenant_id, old_tier, new_tier, trigger_kind, source, actor, changed_fields, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.OldTier,
		entry.NewTier,
		entry.TriggerKind,
		entry.Source,
		entry.Actor,
		entry.ChangedFields,
		entry.CreatedAt,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to write billing audit log").
			WithReportableDetails(map[string]any{"tenant_id": entry.TenantID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *auditLogRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*auditlog.Entry, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT id, tenant_id, old_tier, new_tier, trigger_kind, source, actor, changed_fields, created_at
		FROM billing_audit_log
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	var entries []*auditlog.Entry
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &entries, query, tenantID, limit); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list billing audit log").
			Mark(ierr.ErrDatabase)
	}
	return entries, nil
}
