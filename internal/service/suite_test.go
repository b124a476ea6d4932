package service

import (
	"github.com/flexprice/tiersync/internal/testutil"
)

// serviceSuite wires services onto the in-memory fakes
type serviceSuite struct {
	testutil.BaseServiceTestSuite
}

func (s *serviceSuite) params() ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:            s.GetLogger(),
		Config:            s.GetConfig(),
		DB:                s.GetDB(),
		Metrics:           s.GetMetrics(),
		Cache:             s.GetCache(),
		BillingRecordRepo: stores.BillingRecordRepo,
		AuditLogRepo:      stores.AuditLogRepo,
		TenantRepo:        stores.TenantRepo,
		Catalog:           s.GetCatalog(),
		Gateway:           s.GetGateway(),
		Notifier:          s.GetNotifier(),
	}
}
