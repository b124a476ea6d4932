package testutil

import (
	"context"
	"time"

	"github.com/flexprice/tiersync/internal/cache"
	"github.com/flexprice/tiersync/internal/config"
	"github.com/flexprice/tiersync/internal/domain/tenant"
	"github.com/flexprice/tiersync/internal/domain/tier"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/metrics"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/flexprice/tiersync/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Plan identifiers known to the test catalog
const (
	PriceStarterMonthly = "price_starter_monthly"
	PriceProMonthly     = "price_pro_monthly"
	PriceProYearly      = "price_pro_yearly"
	ProductPro          = "prod_pro"
	PriceEnterprise     = "price_enterprise"
	PriceUnknown        = "price_not_in_catalog"
)

// Stores holds the in-memory repositories
type Stores struct {
	BillingRecordRepo *InMemoryBillingRecordStore
	AuditLogRepo      *InMemoryAuditLogStore
	TenantRepo        *InMemoryTenantStore
}

// BaseServiceTestSuite provides common functionality for service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	stores   Stores
	gateway  *FakeGateway
	notifier *FakeNotifier
	db       *MockPostgresClient
	logger   *logger.Logger
	config   *config.Configuration
	catalog  *tier.Catalog
	cache    *cache.InMemoryCache
	metrics  *metrics.Metrics
	now      time.Time
}

// TestConfig is a configuration with the test plan catalog
func TestConfig() *config.Configuration {
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Cache.Enabled = true
	cfg.Billing.DefaultBonusTier = types.TierPro
	cfg.Billing.Checkout.SuccessURL = "https://app.test/billing/success"
	cfg.Billing.Checkout.CancelURL = "https://app.test/billing/cancel"
	cfg.Billing.Portal.ReturnURL = "https://app.test/billing"
	cfg.Billing.Plans = []config.PlanConfig{
		{Tier: types.TierStarter, PriceIDs: []string{PriceStarterMonthly}},
		{Tier: types.TierPro, PriceIDs: []string{PriceProMonthly, PriceProYearly}, ProductIDs: []string{ProductPro}},
		{Tier: types.TierEnterprise, PriceIDs: []string{PriceEnterprise}},
	}
	return cfg
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	s.config = TestConfig()
	s.logger = logger.NewNoop()
	s.metrics = metrics.New()

	catalog, err := tier.NewCatalog(s.config.Billing.Plans)
	if err != nil {
		s.T().Fatalf("failed to build catalog: %v", err)
	}
	s.catalog = catalog
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.stores = Stores{
		BillingRecordRepo: NewInMemoryBillingRecordStore(),
		AuditLogRepo:      NewInMemoryAuditLogStore(),
		TenantRepo:        NewInMemoryTenantStore(),
	}
	s.gateway = NewFakeGateway()
	s.notifier = NewFakeNotifier()
	s.db = NewMockPostgresClient()
	s.cache = cache.NewInMemoryCache(s.config, s.logger)
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.stores.BillingRecordRepo.Clear()
	s.stores.AuditLogRepo.Clear()
	s.stores.TenantRepo.Clear()
	s.cache.Flush(context.Background())
}

// CreateTenant registers a tenant in the directory
func (s *BaseServiceTestSuite) CreateTenant(id, email string) *tenant.Tenant {
	t := &tenant.Tenant{
		ID:           id,
		Name:         "Clinic " + id,
		ContactEmail: email,
		Status:       types.StatusActive,
	}
	s.NoError(s.stores.TenantRepo.Create(s.ctx, t))
	return t
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetGateway() *FakeGateway {
	return s.gateway
}

func (s *BaseServiceTestSuite) GetNotifier() *FakeNotifier {
	return s.notifier
}

func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetCatalog() *tier.Catalog {
	return s.catalog
}

func (s *BaseServiceTestSuite) GetCache() *cache.InMemoryCache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetMetrics() *metrics.Metrics {
	return s.metrics
}

func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
