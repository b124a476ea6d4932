package tenant

import (
	"context"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Tenant, error)
	// GetByContactEmail is case insensitive
	GetByContactEmail(ctx context.Context, email string) (*Tenant, error)
}
