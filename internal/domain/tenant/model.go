package tenant

import (
	"time"

	"github.com/flexprice/tiersync/internal/types"
)

// Tenant is the billed organisation. This service only reads tenants: the
// contact email is what the billing provider knows the tenant by.
type Tenant struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	ContactEmail string       `db:"contact_email" json:"contact_email"`
	Status       types.Status `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

func (t *Tenant) IsActive() bool {
	return t != nil && t.Status == types.StatusActive
}
