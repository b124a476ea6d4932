package postgres

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/tiersync/internal/domain/tenant"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/postgres"
)

const tenantColumns = `id, name, contact_email, status, created_at, updated_at`

type tenantRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewTenantRepository(db *postgres.DB, logger *logger.Logger) tenant.Repository {
	return &tenantRepository{db: db, logger: logger}
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var t tenant.Tenant
	err := r.db.GetQuerier(ctx).GetContext(ctx, &t,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tenant.NewTenantNotFoundError(id)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get tenant").
			Mark(ierr.ErrDatabase)
	}
	return &t, nil
}

func (r *tenantRepository) GetByContactEmail(ctx context.Context, email string) (*tenant.Tenant, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	// oldest tenant wins if an email was reused
	var t tenant.Tenant
	err := r.db.GetQuerier(ctx).GetContext(ctx, &t,
		`SELECT `+tenantColumns+` FROM tenants WHERE LOWER(contact_email) = LOWER($1) AND status <> 'deleted'
		 ORDER BY created_at ASC LIMIT 1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tenant.NewTenantEmailNotFoundError(email)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get tenant by contact email").
			Mark(ierr.ErrDatabase)
	}
	return &t, nil
}
