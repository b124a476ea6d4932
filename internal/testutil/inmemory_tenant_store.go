package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/flexprice/tiersync/internal/domain/tenant"
	"github.com/flexprice/tiersync/internal/types"
)

type InMemoryTenantStore struct {
	mu      sync.RWMutex
	tenants map[string]*tenant.Tenant
}

var _ tenant.Repository = (*InMemoryTenantStore)(nil)

func NewInMemoryTenantStore() *InMemoryTenantStore {
	return &InMemoryTenantStore{
		tenants: make(map[string]*tenant.Tenant),
	}
}

func (s *InMemoryTenantStore) Create(_ context.Context, t *tenant.Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[t.ID]; exists {
		return fmt.Errorf("tenant already exists")
	}
	if t.Status == "" {
		t.Status = types.StatusActive
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
	s.tenants[t.ID] = t
	return nil
}

func (s *InMemoryTenantStore) GetByID(_ context.Context, id string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, exists := s.tenants[id]; exists {
		return t, nil
	}
	return nil, tenant.NewTenantNotFoundError(id)
}

func (s *InMemoryTenantStore) GetByContactEmail(_ context.Context, email string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *tenant.Tenant
	for _, t := range s.tenants {
		if !strings.EqualFold(t.ContactEmail, email) || t.Status == types.StatusDeleted {
			continue
		}
		if found == nil || t.CreatedAt.Before(found.CreatedAt) {
			found = t
		}
	}
	if found == nil {
		return nil, tenant.NewTenantEmailNotFoundError(email)
	}
	return found, nil
}

func (s *InMemoryTenantStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tenants = make(map[string]*tenant.Tenant)
}
