package service

import (
	"context"
	"time"

	"github.com/flexprice/tiersync/internal/api/dto"
	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/types"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// BillingAdminService is the operator tooling over tenant billing records
type BillingAdminService interface {
	GetBillingRecord(ctx context.Context, tenantID string) (*dto.BillingRecordResponse, error)
	UpdateBillingRecord(ctx context.Context, tenantID string, req dto.UpdateBillingRecordRequest) (*dto.BillingRecordResponse, error)
	ListAuditLog(ctx context.Context, tenantID string, limit int) (*dto.ListResponse[*dto.AuditLogResponse], error)
}

type billingAdminService struct {
	ServiceParams
	reconciler Reconciler
	writer     *recordWriter
}

func NewBillingAdminService(params ServiceParams, reconciler Reconciler) BillingAdminService {
	return &billingAdminService{
		ServiceParams: params,
		reconciler:    reconciler,
		writer:        &recordWriter{ServiceParams: params},
	}
}

func (s *billingAdminService) GetBillingRecord(ctx context.Context, tenantID string) (*dto.BillingRecordResponse, error) {
	record, err := s.BillingRecordRepo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return dto.NewBillingRecordResponse(record), nil
}

// UpdateBillingRecord applies an operator override. Releasing an override
// hands the tenant back to the reconciler straight away.
func (s *billingAdminService) UpdateBillingRecord(ctx context.Context, tenantID string, req dto.UpdateBillingRecordRequest) (*dto.BillingRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		record   *billingrecord.BillingRecord
		released bool
	)
	attempt := func() error {
		current, err := s.BillingRecordRepo.GetOrCreate(ctx, tenantID)
		if err != nil {
			return err
		}
		target := current.Clone()
		req.Apply(target)

		if len(target.CustomLimits) > 0 && target.Tier != types.TierEnterprise {
			return ierr.NewError("custom limits require the enterprise tier").
				WithHint("Custom limits can only be set on enterprise tenants").
				WithReportableDetails(map[string]any{
					"tenant_id": tenantID,
					"tier":      target.Tier,
				}).
				Mark(ierr.ErrValidation)
		}
		if req.Tier != nil && !target.IsManualOverride {
			return ierr.NewError("tier can only be set with a manual override").
				WithHint("Set is_manual_override to true to pin a tier").
				Mark(ierr.ErrValidation)
		}

		if _, err := s.writer.write(ctx, &recordWrite{
			current: current,
			target:  target,
			trigger: types.TriggerOperator,
			source:  types.TierSourceManualOverride,
			actor:   actorFromContext(ctx),
		}); err != nil {
			return err
		}
		record = target
		released = current.IsManualOverride && !target.IsManualOverride
		return nil
	}

	err := attempt()
	if ierr.IsVersionConflict(err) {
		err = attempt()
	}
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("operator updated billing record",
		"tenant_id", tenantID,
		"actor", actorFromContext(ctx),
		"reason", req.Reason,
		"is_manual_override", record.IsManualOverride,
		"tier", record.Tier,
	)

	if released || req.ClearBonus || req.BonusExpiresAt != nil {
		out, err := s.reconciler.Reconcile(ctx, tenantID, &types.ReconciliationEvent{
			Kind:       types.TriggerOperator,
			TenantID:   tenantID,
			OccurredAt: time.Now().UTC(),
		})
		if err != nil {
			s.Logger.WithContext(ctx).Warnw("reconciliation after operator update failed",
				"tenant_id", tenantID,
				"error", err,
			)
		} else if out.Changed {
			return s.GetBillingRecord(ctx, tenantID)
		}
	}
	return dto.NewBillingRecordResponse(record), nil
}

func (s *billingAdminService) ListAuditLog(ctx context.Context, tenantID string, limit int) (*dto.ListResponse[*dto.AuditLogResponse], error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	entries, err := s.AuditLogRepo.ListByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}
	items := dto.NewAuditLogResponses(entries)
	return &dto.ListResponse[*dto.AuditLogResponse]{Items: items, Total: len(items)}, nil
}
