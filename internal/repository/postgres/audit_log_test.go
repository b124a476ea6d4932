package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/flexprice/tiersync/internal/domain/auditlog"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/postgres"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
)

type AuditLogRepositorySuite struct {
	suite.Suite
	ctx  context.Context
	mock sqlmock.Sqlmock
	repo auditlog.Repository
}

func TestAuditLogRepository(t *testing.T) {
	suite.Run(t, new(AuditLogRepositorySuite))
}

func (s *AuditLogRepositorySuite) SetupTest() {
	sqlDB, mock, err := sqlmock.New()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.mock = mock
	db := postgres.NewFromSQLX(sqlx.NewDb(sqlDB, "postgres"), logger.NewNoop(), time.Second)
	s.repo = NewAuditLogRepository(db, logger.NewNoop())
}

func (s *AuditLogRepositorySuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *AuditLogRepositorySuite) TestCreate() {
	entry := auditlog.NewEntry("tenant_1", types.TierFree, types.TierPro, types.TriggerInvoicePaid)
	entry.ChangedFields = []string{"tier"}

	s.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO billing_audit_log`)).
		WithArgs(entry.ID, "tenant_1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.Require().NoError(s.repo.Create(s.ctx, entry))
}

func (s *AuditLogRepositorySuite) TestCreate_DatabaseError() {
	entry := auditlog.NewEntry("tenant_1", types.TierFree, types.TierPro, types.TriggerInvoicePaid)

	s.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO billing_audit_log`)).
		WillReturnError(errors.New("connection reset"))

	err := s.repo.Create(s.ctx, entry)
	s.Require().Error(err)
	s.True(ierr.IsDatabase(err))
}

func (s *AuditLogRepositorySuite) TestListByTenant_ClampsLimit() {
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "old_tier", "new_tier", "trigger_kind", "source", "actor", "changed_fields", "created_at",
	}).
		AddRow("audit_2", "tenant_1", "pro", "enterprise", "operator", "", "ops@example.com", "{tier,custom_limits}", now).
		AddRow("audit_1", "tenant_1", "free", "pro", "invoice_paid", "subscription", "", "{tier}", now.Add(-time.Hour))

	s.mock.ExpectQuery(regexp.QuoteMeta(`FROM billing_audit_log`)).
		WithArgs("tenant_1", 50).
		WillReturnRows(rows)

	entries, err := s.repo.ListByTenant(s.ctx, "tenant_1", 10000)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("audit_2", entries[0].ID)
	s.Equal(types.TierEnterprise, entries[0].NewTier)
	s.Equal([]string{"tier", "custom_limits"}, []string(entries[0].ChangedFields))
	s.True(entries[1].TierChanged())
}
