package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/flexprice/tiersync/internal/domain/auditlog"
)

type InMemoryAuditLogStore struct {
	mu      sync.RWMutex
	entries []*auditlog.Entry
}

var _ auditlog.Repository = (*InMemoryAuditLogStore)(nil)

func NewInMemoryAuditLogStore() *InMemoryAuditLogStore {
	return &InMemoryAuditLogStore{}
}

func (s *InMemoryAuditLogStore) Create(_ context.Context, entry *auditlog.Entry) error {
	if entry == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *entry
	s.entries = append(s.entries, &c)
	return nil
}

func (s *InMemoryAuditLogStore) ListByTenant(_ context.Context, tenantID string, limit int) ([]*auditlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*auditlog.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].TenantID == tenantID {
			c := *s.entries[i]
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Entries returns every entry in insertion order
func (s *InMemoryAuditLogStore) Entries() []*auditlog.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*auditlog.Entry(nil), s.entries...)
}

func (s *InMemoryAuditLogStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
