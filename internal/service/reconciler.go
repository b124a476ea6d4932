package service

import (
	"context"
	"time"

	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
)

// ReconciliationOutcome is the result of one reconciliation pass
type ReconciliationOutcome struct {
	TenantID      string
	Tier          types.Tier
	PreviousTier  types.Tier
	Changed       bool
	Source        types.TierSource
	ChangedFields []billingrecord.Field
}

// Reconciler computes and persists the authoritative tier of a tenant.
// An event only selects whom to reconcile, the tier is always re-derived
// from the billing provider's current state.
type Reconciler interface {
	Reconcile(ctx context.Context, tenantID string, event *types.ReconciliationEvent) (*ReconciliationOutcome, error)
	// AttachCustomer links a billing customer to a tenant that has none yet
	AttachCustomer(ctx context.Context, tenantID, customerID string, trigger types.ReconciliationTrigger) error
}

type reconciler struct {
	ServiceParams
	writer *recordWriter
	now    func() time.Time
}

func NewReconciler(params ServiceParams) Reconciler {
	return &reconciler{
		ServiceParams: params,
		writer:        &recordWriter{ServiceParams: params},
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *reconciler) Reconcile(ctx context.Context, tenantID string, event *types.ReconciliationEvent) (*ReconciliationOutcome, error) {
	if tenantID == "" {
		return nil, ierr.NewError("tenant id is required").
			WithHint("A tenant id is required to reconcile").
			Mark(ierr.ErrValidation)
	}

	start := time.Now()
	trigger := types.TriggerManualSync
	if event != nil && event.Kind != "" {
		trigger = event.Kind
	}
	log := s.Logger.WithContext(ctx)

	record, err := s.BillingRecordRepo.GetOrCreate(ctx, tenantID)
	if err != nil {
		s.Metrics.Reconciliation(string(trigger), "", "error", time.Since(start))
		return nil, err
	}

	// Provider state is fetched at most once per pass and reused when a
	// conflicting write forces the rules to run again.
	state := newProviderState(s.ServiceParams, tenantID)

	outcome, err := s.apply(ctx, record, trigger, state)
	if ierr.IsVersionConflict(err) {
		s.Metrics.VersionConflict()
		log.Infow("billing record changed concurrently, retrying once",
			"tenant_id", tenantID,
			"expected_version", record.Version,
		)

		record, err = s.BillingRecordRepo.Get(ctx, tenantID)
		if err == nil {
			outcome, err = s.apply(ctx, record, trigger, state)
		}
		if ierr.IsVersionConflict(err) {
			log.Errorw("billing record conflict persisted after retry",
				"tenant_id", tenantID,
				"trigger", trigger,
				"error", err,
			)
		}
	}

	result := "unchanged"
	switch {
	case err != nil:
		result = "error"
	case outcome.Changed:
		result = "changed"
	}
	source := ""
	if outcome != nil {
		source = string(outcome.Source)
	}
	s.Metrics.Reconciliation(string(trigger), source, result, time.Since(start))

	if err != nil && ierr.IsProviderUnavailable(err) {
		log.Errorw("billing provider unavailable, keeping persisted tier",
			"tenant_id", tenantID,
			"tier", outcome.Tier,
			"trigger", trigger,
			"error", err,
		)
	}
	return outcome, err
}

// apply evaluates the precedence rules against record and writes the
// result. When the provider cannot be reached the persisted tier is
// returned together with the error.
func (s *reconciler) apply(
	ctx context.Context,
	record *billingrecord.BillingRecord,
	trigger types.ReconciliationTrigger,
	state *providerState,
) (*ReconciliationOutcome, error) {
	eval := &evaluation{
		current: record,
		target:  record.Clone(),
		now:     s.now(),
		state:   state,
	}

	if err := s.evaluate(ctx, eval); err != nil {
		return &ReconciliationOutcome{
			TenantID:     record.TenantID,
			Tier:         record.Tier,
			PreviousTier: record.Tier,
			Source:       types.TierSourceCached,
		}, err
	}

	fields, err := s.writer.write(ctx, &recordWrite{
		current: record,
		target:  eval.target,
		trigger: trigger,
		source:  eval.source,
		actor:   actorFromContext(ctx),
	})
	if err != nil {
		return &ReconciliationOutcome{
			TenantID:     record.TenantID,
			Tier:         record.Tier,
			PreviousTier: record.Tier,
			Source:       eval.source,
		}, err
	}

	return &ReconciliationOutcome{
		TenantID:      record.TenantID,
		Tier:          eval.target.Tier,
		PreviousTier:  record.Tier,
		Changed:       len(fields) > 0,
		Source:        eval.source,
		ChangedFields: fields,
	}, nil
}

func (s *reconciler) AttachCustomer(ctx context.Context, tenantID, customerID string, trigger types.ReconciliationTrigger) error {
	if customerID == "" {
		return nil
	}

	attempt := func() error {
		record, err := s.BillingRecordRepo.GetOrCreate(ctx, tenantID)
		if err != nil {
			return err
		}
		// overridden tenants keep their provider links frozen, and a linked
		// customer is never replaced
		if record.IsManualOverride || record.CustomerID() != "" {
			return nil
		}
		target := record.Clone()
		target.BillingCustomerID = lo.ToPtr(customerID)
		_, err = s.writer.write(ctx, &recordWrite{
			current: record,
			target:  target,
			trigger: trigger,
			source:  types.TierSourceProvider,
			actor:   actorFromContext(ctx),
		})
		return err
	}

	err := attempt()
	if ierr.IsVersionConflict(err) {
		s.Metrics.VersionConflict()
		err = attempt()
	}
	return err
}
