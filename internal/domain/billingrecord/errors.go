package billingrecord

import (
	ierr "github.com/flexprice/tiersync/internal/errors"
)

func NewNotFoundError(tenantID string) error {
	return ierr.NewError("billing record not found").
		WithHintf("No billing record for tenant %s", tenantID).
		WithReportableDetails(map[string]any{"tenant_id": tenantID}).
		Mark(ierr.ErrNotFound)
}

func NewVersionConflictError(tenantID string, expectedVersion int64) error {
	return ierr.NewError("billing record was modified concurrently").
		WithHint("The billing record changed while it was being updated, please retry").
		WithReportableDetails(map[string]any{
			"tenant_id":        tenantID,
			"expected_version": expectedVersion,
		}).
		Mark(ierr.ErrVersionConflict)
}
