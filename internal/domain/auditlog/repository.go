package auditlog

import "context"

type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	// ListByTenant returns the newest entries first
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*Entry, error)
}
