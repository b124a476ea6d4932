package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/postgres"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
)

const billingRecordColumns = `tenant_id, tier, billing_customer_id, billing_subscription_id,
	is_manual_override, bonus_expires_at, bonus_tier, custom_limits,
	last_event_at, last_reconciled_at, version, created_at, updated_at`

type billingRecordRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewBillingRecordRepository(db *postgres.DB, logger *logger.Logger) billingrecord.Repository {
	return &billingRecordRepository{db: db, logger: logger}
}

func (r *billingRecordRepository) Get(ctx context.Context, tenantID string) (*billingrecord.BillingRecord, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `SELECT ` + billingRecordColumns + ` FROM tenant_billing_records WHERE tenant_id = $1`
	return r.getOne(ctx, query, tenantID)
}

func (r *billingRecordRepository) GetOrCreate(ctx context.Context, tenantID string) (*billingrecord.BillingRecord, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	def := billingrecord.NewDefault(tenantID)
	query := `
		INSERT INTO tenant_billing_records (tenant_id, tier, is_manual_override, version, created_at, updated_at)
		VALUES ($1, $2, FALSE, $3, $4, $5)
		ON CONFLICT (tenant_id) DO NOTHING`

	res, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		def.TenantID, def.Tier, def.Version, def.CreatedAt, def.UpdatedAt)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create billing record").
			WithReportableDetails(map[string]any{"tenant_id": tenantID}).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		r.logger.Infow("created default billing record", "tenant_id", tenantID)
	}

	query = `SELECT ` + billingRecordColumns + ` FROM tenant_billing_records WHERE tenant_id = $1`
	return r.getOne(ctx, query, tenantID)
}

func (r *billingRecordRepository) Update(
	ctx context.Context,
	record *billingrecord.BillingRecord,
	expectedVersion int64,
	fields ...billingrecord.Field,
) error {
	fields = lo.Uniq(fields)
	if len(fields) == 0 {
		return nil
	}

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	sets := make([]string, 0, len(fields)+2)
	args := make([]interface{}, 0, len(fields)+3)
	for _, f := range fields {
		v, err := fieldValue(record, f)
		if err != nil {
			return err
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", f, len(args)))
	}

	now := time.Now().UTC()
	args = append(args, now)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)), "version = version + 1")

	args = append(args, record.TenantID, expectedVersion)
	query := fmt.Sprintf(
		`UPDATE tenant_billing_records SET %s WHERE tenant_id = $%d AND version = $%d RETURNING version`,
		strings.Join(sets, ", "), len(args)-1, len(args),
	)

	var newVersion int64
	err := r.db.GetQuerier(ctx).GetContext(ctx, &newVersion, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return billingrecord.NewVersionConflictError(record.TenantID, expectedVersion)
	}
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update billing record").
			WithReportableDetails(map[string]any{
				"tenant_id": record.TenantID,
				"fields":    fields,
			}).
			Mark(ierr.ErrDatabase)
	}

	record.Version = newVersion
	record.UpdatedAt = now
	return nil
}

func (r *billingRecordRepository) TouchEvent(ctx context.Context, tenantID string, at time.Time) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	// last_event_at only moves forward, deliveries arrive out of order
	query := `
		UPDATE tenant_billing_records
		SET last_event_at = GREATEST(COALESCE(last_event_at, $2), $2)
		WHERE tenant_id = $1`

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, tenantID, at.UTC()); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record billing event").
			WithReportableDetails(map[string]any{"tenant_id": tenantID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *billingRecordRepository) FindByCustomerID(ctx context.Context, customerID string) (*billingrecord.BillingRecord, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `SELECT ` + billingRecordColumns + ` FROM tenant_billing_records WHERE billing_customer_id = $1`
	return r.getOne(ctx, query, customerID)
}

func (r *billingRecordRepository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*billingrecord.BillingRecord, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `SELECT ` + billingRecordColumns + ` FROM tenant_billing_records WHERE billing_subscription_id = $1 LIMIT 1`
	return r.getOne(ctx, query, subscriptionID)
}

func (r *billingRecordRepository) ListStale(ctx context.Context, filter billingrecord.StaleFilter) ([]*billingrecord.BillingRecord, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if filter.Limit <= 0 {
		filter.Limit = 100
	}

	query := `SELECT ` + billingRecordColumns + `
		FROM tenant_billing_records
		WHERE tier <> $1
		  AND is_manual_override = FALSE
		  AND (last_event_at IS NULL OR last_event_at < $2)
		  AND tenant_id > $3
		ORDER BY tenant_id
		LIMIT $4`

	var records []*billingrecord.BillingRecord
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &records, query,
		types.TierFree, filter.EventBefore.UTC(), filter.AfterTenantID, filter.Limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list stale billing records").
			Mark(ierr.ErrDatabase)
	}
	return records, nil
}

func (r *billingRecordRepository) getOne(ctx context.Context, query string, arg interface{}) (*billingrecord.BillingRecord, error) {
	var record billingrecord.BillingRecord
	err := r.db.GetQuerier(ctx).GetContext(ctx, &record, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ierr.WithError(err).
			WithHint("Billing record not found").
			WithReportableDetails(map[string]any{"key": arg}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get billing record").
			Mark(ierr.ErrDatabase)
	}
	return &record, nil
}

func fieldValue(record *billingrecord.BillingRecord, f billingrecord.Field) (interface{}, error) {
	switch f {
	case billingrecord.FieldTier:
		return record.Tier, nil
	case billingrecord.FieldBillingCustomerID:
		return record.BillingCustomerID, nil
	case billingrecord.FieldBillingSubscriptionID:
		return record.BillingSubscriptionID, nil
	case billingrecord.FieldIsManualOverride:
		return record.IsManualOverride, nil
	case billingrecord.FieldBonusExpiresAt:
		return record.BonusExpiresAt, nil
	case billingrecord.FieldBonusTier:
		return record.BonusTier, nil
	case billingrecord.FieldCustomLimits:
		return record.CustomLimits, nil
	case billingrecord.FieldLastReconciledAt:
		return record.LastReconciledAt, nil
	}
	return nil, ierr.NewError("unknown billing record field").
		WithReportableDetails(map[string]any{"field": f}).
		Mark(ierr.ErrSystem)
}
