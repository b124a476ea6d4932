package service

import (
	"context"

	"github.com/flexprice/tiersync/internal/cache"
	"github.com/flexprice/tiersync/internal/config"
	"github.com/flexprice/tiersync/internal/domain/auditlog"
	"github.com/flexprice/tiersync/internal/domain/billingprovider"
	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	"github.com/flexprice/tiersync/internal/domain/tenant"
	"github.com/flexprice/tiersync/internal/domain/tier"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/metrics"
	"github.com/flexprice/tiersync/internal/postgres"
	"github.com/flexprice/tiersync/internal/sentry"
	"github.com/flexprice/tiersync/internal/svix"
)

// TierNotifier publishes committed tier changes to the tenant's own
// webhook endpoints.
type TierNotifier interface {
	NotifyTierUpdated(ctx context.Context, payload *svix.TierUpdatedPayload) error
}

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger  *logger.Logger
	Config  *config.Configuration
	DB      postgres.IClient
	Sentry  *sentry.Service
	Metrics *metrics.Metrics
	Cache   cache.Cache

	// Repositories
	BillingRecordRepo billingrecord.Repository
	AuditLogRepo      auditlog.Repository
	TenantRepo        tenant.Repository

	Catalog       *tier.Catalog
	Gateway       billingprovider.Gateway
	EventVerifier billingprovider.EventVerifier
	Notifier      TierNotifier
}

func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	sentry *sentry.Service,
	metrics *metrics.Metrics,
	cache cache.Cache,
	billingRecordRepo billingrecord.Repository,
	auditLogRepo auditlog.Repository,
	tenantRepo tenant.Repository,
	catalog *tier.Catalog,
	gateway billingprovider.Gateway,
	eventVerifier billingprovider.EventVerifier,
	notifier TierNotifier,
) ServiceParams {
	return ServiceParams{
		Logger:            logger,
		Config:            config,
		DB:                db,
		Sentry:            sentry,
		Metrics:           metrics,
		Cache:             cache,
		BillingRecordRepo: billingRecordRepo,
		AuditLogRepo:      auditLogRepo,
		TenantRepo:        tenantRepo,
		Catalog:           catalog,
		Gateway:           gateway,
		EventVerifier:     eventVerifier,
		Notifier:          notifier,
	}
}
