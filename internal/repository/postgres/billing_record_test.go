package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/postgres"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type BillingRecordRepositorySuite struct {
	suite.Suite
	ctx  context.Context
	mock sqlmock.Sqlmock
	repo billingrecord.Repository
}

func TestBillingRecordRepository(t *testing.T) {
	suite.Run(t, new(BillingRecordRepositorySuite))
}

func (s *BillingRecordRepositorySuite) SetupTest() {
	sqlDB, mock, err := sqlmock.New()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.mock = mock
	db := postgres.NewFromSQLX(sqlx.NewDb(sqlDB, "postgres"), logger.NewNoop(), time.Second)
	s.repo = NewBillingRecordRepository(db, logger.NewNoop())
}

func (s *BillingRecordRepositorySuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func recordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"tenant_id", "tier", "billing_customer_id", "billing_subscription_id",
		"is_manual_override", "bonus_expires_at", "bonus_tier", "custom_limits",
		"last_event_at", "last_reconciled_at", "version", "created_at", "updated_at",
	})
}

func (s *BillingRecordRepositorySuite) TestUpdate_WritesOnlyListedFields() {
	record := &billingrecord.BillingRecord{
		TenantID:          "tenant_1",
		Tier:              types.TierPro,
		BillingCustomerID: lo.ToPtr("cus_1"),
	}

	s.mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE tenant_billing_records SET tier = $1, billing_customer_id = $2, updated_at = $3, version = version + 1 WHERE tenant_id = $4 AND version = $5 RETURNING version`,
	)).
		WithArgs("pro", "cus_1", sqlmock.AnyArg(), "tenant_1", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(4)))

	err := s.repo.Update(s.ctx, record, 3,
		billingrecord.FieldTier,
		billingrecord.FieldBillingCustomerID,
		billingrecord.FieldTier,
	)
	s.Require().NoError(err)
	s.Equal(int64(4), record.Version)
}

func (s *BillingRecordRepositorySuite) TestUpdate_StaleVersionIsConflict() {
	record := &billingrecord.BillingRecord{TenantID: "tenant_1", Tier: types.TierFree}

	s.mock.ExpectQuery(regexp.QuoteMeta(`UPDATE tenant_billing_records SET tier = $1`)).
		WithArgs("free", sqlmock.AnyArg(), "tenant_1", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	err := s.repo.Update(s.ctx, record, 7, billingrecord.FieldTier)
	s.Require().Error(err)
	s.True(ierr.IsVersionConflict(err))
	s.Equal(int64(0), record.Version)
}

func (s *BillingRecordRepositorySuite) TestUpdate_NoFieldsIsNoop() {
	err := s.repo.Update(s.ctx, &billingrecord.BillingRecord{TenantID: "tenant_1"}, 1)
	s.NoError(err)
}

func (s *BillingRecordRepositorySuite) TestGetOrCreate() {
	now := time.Now().UTC()

	s.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tenant_billing_records`)).
		WithArgs("tenant_1", "free", int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectQuery(regexp.QuoteMeta(`FROM tenant_billing_records WHERE tenant_id = $1`)).
		WithArgs("tenant_1").
		WillReturnRows(recordRows().AddRow(
			"tenant_1", "free", nil, nil, false, nil, nil, nil, nil, nil, int64(1), now, now,
		))

	record, err := s.repo.GetOrCreate(s.ctx, "tenant_1")
	s.Require().NoError(err)
	s.Equal(types.TierFree, record.Tier)
	s.Nil(record.BillingCustomerID)
	s.Equal(int64(1), record.Version)
}

func (s *BillingRecordRepositorySuite) TestGet_ScansNullableColumns() {
	now := time.Now().UTC()
	bonus := now.Add(time.Hour)

	s.mock.ExpectQuery(regexp.QuoteMeta(`FROM tenant_billing_records WHERE tenant_id = $1`)).
		WithArgs("tenant_1").
		WillReturnRows(recordRows().AddRow(
			"tenant_1", "enterprise", "cus_1", "sub_1", true, bonus, "pro",
			[]byte(`{"seats":"25"}`), now, now, int64(9), now, now,
		))

	record, err := s.repo.Get(s.ctx, "tenant_1")
	s.Require().NoError(err)
	s.Equal(types.TierEnterprise, record.Tier)
	s.Equal("cus_1", record.CustomerID())
	s.Equal("sub_1", record.SubscriptionID())
	s.True(record.IsManualOverride)
	s.Equal(types.TierPro, lo.FromPtr(record.BonusTier))
	s.Equal("25", record.CustomLimits["seats"].String())
}

func (s *BillingRecordRepositorySuite) TestGet_Missing() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`FROM tenant_billing_records WHERE tenant_id = $1`)).
		WithArgs("tenant_missing").
		WillReturnRows(recordRows())

	_, err := s.repo.Get(s.ctx, "tenant_missing")
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *BillingRecordRepositorySuite) TestTouchEvent() {
	at := time.Now()
	s.mock.ExpectExec(regexp.QuoteMeta(`SET last_event_at = GREATEST(COALESCE(last_event_at, $2), $2)`)).
		WithArgs("tenant_1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.repo.TouchEvent(s.ctx, "tenant_1", at))
}

func (s *BillingRecordRepositorySuite) TestListStale() {
	now := time.Now().UTC()
	cutoff := now.Add(-24 * time.Hour)

	s.mock.ExpectQuery(regexp.QuoteMeta(`AND is_manual_override = FALSE`)).
		WithArgs("free", sqlmock.AnyArg(), "", 10).
		WillReturnRows(recordRows().
			AddRow("tenant_a", "pro", "cus_a", "sub_a", false, nil, nil, nil, nil, nil, int64(2), now, now).
			AddRow("tenant_b", "starter", "cus_b", nil, false, nil, nil, nil, cutoff.Add(-time.Hour), nil, int64(5), now, now))

	records, err := s.repo.ListStale(s.ctx, billingrecord.StaleFilter{EventBefore: cutoff, Limit: 10})
	s.Require().NoError(err)
	s.Len(records, 2)
	s.Equal("tenant_b", records[1].TenantID)
}
