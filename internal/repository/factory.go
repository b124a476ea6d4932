package repository

import (
	"github.com/flexprice/tiersync/internal/domain/auditlog"
	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	"github.com/flexprice/tiersync/internal/domain/tenant"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/postgres"
	postgresRepo "github.com/flexprice/tiersync/internal/repository/postgres"
)

func NewBillingRecordRepository(db *postgres.DB, logger *logger.Logger) billingrecord.Repository {
	return postgresRepo.NewBillingRecordRepository(db, logger)
}

func NewAuditLogRepository(db *postgres.DB, logger *logger.Logger) auditlog.Repository {
	return postgresRepo.NewAuditLogRepository(db, logger)
}

func NewTenantRepository(db *postgres.DB, logger *logger.Logger) tenant.Repository {
	return postgresRepo.NewTenantRepository(db, logger)
}
