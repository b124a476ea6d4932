package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
)

// InMemoryBillingRecordStore keeps copies of the records, so callers
// cannot mutate stored state without going through Update.
type InMemoryBillingRecordStore struct {
	mu      sync.RWMutex
	records map[string]*billingrecord.BillingRecord
	updates int

	// BeforeUpdate runs before the version check, letting tests simulate
	// a concurrent writer.
	BeforeUpdate func(tenantID string)
}

var _ billingrecord.Repository = (*InMemoryBillingRecordStore)(nil)

func NewInMemoryBillingRecordStore() *InMemoryBillingRecordStore {
	return &InMemoryBillingRecordStore{
		records: make(map[string]*billingrecord.BillingRecord),
	}
}

// Put seeds a record as is
func (s *InMemoryBillingRecordStore) Put(r *billingrecord.BillingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Version == 0 {
		r.Version = 1
	}
	s.records[r.TenantID] = r.Clone()
}

func (s *InMemoryBillingRecordStore) Get(_ context.Context, tenantID string) (*billingrecord.BillingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[tenantID]
	if !ok {
		return nil, billingrecord.NewNotFoundError(tenantID)
	}
	return r.Clone(), nil
}

func (s *InMemoryBillingRecordStore) GetOrCreate(_ context.Context, tenantID string) (*billingrecord.BillingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[tenantID]
	if !ok {
		r = billingrecord.NewDefault(tenantID)
		s.records[tenantID] = r
	}
	return r.Clone(), nil
}

func (s *InMemoryBillingRecordStore) Update(_ context.Context, record *billingrecord.BillingRecord, expectedVersion int64, fields ...billingrecord.Field) error {
	if len(fields) == 0 {
		return nil
	}
	if s.BeforeUpdate != nil {
		s.BeforeUpdate(record.TenantID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[record.TenantID]
	if !ok || stored.Version != expectedVersion {
		return billingrecord.NewVersionConflictError(record.TenantID, expectedVersion)
	}

	src := record.Clone()
	if lo.Contains(fields, billingrecord.FieldBillingCustomerID) && src.CustomerID() != "" {
		// mirrors idx_billing_records_customer
		for tenantID, other := range s.records {
			if tenantID != src.TenantID && other.CustomerID() == src.CustomerID() {
				return ierr.NewError("duplicate billing customer id").
					WithReportableDetails(map[string]any{"customer_id": src.CustomerID()}).
					Mark(ierr.ErrDatabase)
			}
		}
	}
	for _, f := range lo.Uniq(fields) {
		switch f {
		case billingrecord.FieldTier:
			stored.Tier = src.Tier
		case billingrecord.FieldBillingCustomerID:
			stored.BillingCustomerID = src.BillingCustomerID
		case billingrecord.FieldBillingSubscriptionID:
			stored.BillingSubscriptionID = src.BillingSubscriptionID
		case billingrecord.FieldIsManualOverride:
			stored.IsManualOverride = src.IsManualOverride
		case billingrecord.FieldBonusExpiresAt:
			stored.BonusExpiresAt = src.BonusExpiresAt
		case billingrecord.FieldBonusTier:
			stored.BonusTier = src.BonusTier
		case billingrecord.FieldCustomLimits:
			stored.CustomLimits = src.CustomLimits
		case billingrecord.FieldLastReconciledAt:
			stored.LastReconciledAt = src.LastReconciledAt
		default:
			return ierr.NewError("unknown billing record field").
				WithReportableDetails(map[string]any{"field": f}).
				Mark(ierr.ErrValidation)
		}
	}
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	s.updates++

	record.Version = stored.Version
	record.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *InMemoryBillingRecordStore) TouchEvent(_ context.Context, tenantID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[tenantID]
	if !ok {
		return nil
	}
	if r.LastEventAt == nil || at.After(*r.LastEventAt) {
		r.LastEventAt = lo.ToPtr(at)
	}
	return nil
}

func (s *InMemoryBillingRecordStore) FindByCustomerID(_ context.Context, customerID string) (*billingrecord.BillingRecord, error) {
	return s.find(func(r *billingrecord.BillingRecord) bool { return r.CustomerID() == customerID })
}

func (s *InMemoryBillingRecordStore) FindBySubscriptionID(_ context.Context, subscriptionID string) (*billingrecord.BillingRecord, error) {
	return s.find(func(r *billingrecord.BillingRecord) bool { return r.SubscriptionID() == subscriptionID })
}

func (s *InMemoryBillingRecordStore) find(match func(*billingrecord.BillingRecord) bool) (*billingrecord.BillingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if match(r) {
			return r.Clone(), nil
		}
	}
	return nil, ierr.NewError("billing record not found").Mark(ierr.ErrNotFound)
}

func (s *InMemoryBillingRecordStore) ListStale(_ context.Context, filter billingrecord.StaleFilter) ([]*billingrecord.BillingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*billingrecord.BillingRecord
	for _, r := range s.records {
		if r.Tier == types.TierFree || r.IsManualOverride {
			continue
		}
		if r.LastEventAt != nil && !r.LastEventAt.Before(filter.EventBefore) {
			continue
		}
		if filter.AfterTenantID != "" && strings.Compare(r.TenantID, filter.AfterTenantID) <= 0 {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// UpdateCount is the number of successful conditional writes
func (s *InMemoryBillingRecordStore) UpdateCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates
}

func (s *InMemoryBillingRecordStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*billingrecord.BillingRecord)
	s.updates = 0
	s.BeforeUpdate = nil
}
