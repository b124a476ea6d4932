package v1

import (
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/gin-gonic/gin"
)

// targetTenant picks the tenant a request acts on. Callers act on their own
// tenant, operators may name any tenant.
func targetTenant(c *gin.Context, requested string) (string, error) {
	ctx := c.Request.Context()
	own := types.GetTenantID(ctx)

	if requested == "" || requested == own {
		if own == "" {
			return "", ierr.NewError("tenant id is required").
				WithHint("Please provide a tenant id").
				Mark(ierr.ErrValidation)
		}
		return own, nil
	}

	if !types.IsOperator(ctx) {
		return "", ierr.NewError("cannot act on another tenant").
			WithHint("You can only access your own tenant").
			WithReportableDetails(map[string]any{"tenant_id": requested}).
			Mark(ierr.ErrPermissionDenied)
	}
	return requested, nil
}
