package tenant

import (
	ierr "github.com/flexprice/tiersync/internal/errors"
)

func NewTenantNotFoundError(id string) error {
	return ierr.NewError("tenant not found").
		WithHintf("tenant not found for id: %s", id).
		WithReportableDetails(map[string]any{"tenant_id": id}).
		Mark(ierr.ErrTenantNotFound)
}

func NewTenantEmailNotFoundError(email string) error {
	return ierr.NewError("tenant not found for contact email").
		WithHint("No tenant uses this contact email").
		WithReportableDetails(map[string]any{"email": email}).
		Mark(ierr.ErrTenantNotFound)
}
