package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/flexprice/tiersync/internal/api/dto"
	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/sourcegraph/conc/pool"
)

// SweepService reconciles paid tenants that have not seen a webhook for a
// while, covering deliveries the provider gave up on.
type SweepService interface {
	Sweep(ctx context.Context) (*dto.SweepResponse, error)
	// Run sweeps on every interval until ctx is done
	Run(ctx context.Context) error
}

type sweepService struct {
	ServiceParams
	reconciler Reconciler
}

func NewSweepService(params ServiceParams, reconciler Reconciler) SweepService {
	return &sweepService{
		ServiceParams: params,
		reconciler:    reconciler,
	}
}

func (s *sweepService) Sweep(ctx context.Context) (*dto.SweepResponse, error) {
	start := time.Now()
	sweepID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SWEEP)
	cfg := s.Config.Sweep

	span, ctx := s.Sentry.StartTransaction(ctx, "billing.sweep")
	if span != nil {
		defer span.Finish()
	}

	log := s.Logger.WithContext(ctx).With("sweep_id", sweepID)
	log.Infow("starting billing sweep",
		"stale_after", cfg.StaleAfter.String(),
		"batch_size", cfg.BatchSize,
		"concurrency", cfg.Concurrency,
	)

	var scanned, changed, unchanged, failed atomic.Int64
	cutoff := time.Now().UTC().Add(-cfg.StaleAfter)
	after := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := s.BillingRecordRepo.ListStale(ctx, billingrecord.StaleFilter{
			EventBefore:   cutoff,
			Limit:         cfg.BatchSize,
			AfterTenantID: after,
		})
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		p := pool.New().WithMaxGoroutines(max(cfg.Concurrency, 1))
		for _, rec := range batch {
			tenantID := rec.TenantID
			p.Go(func() {
				scanned.Add(1)
				out, err := s.reconciler.Reconcile(types.SetTenantID(ctx, tenantID), tenantID, &types.ReconciliationEvent{
					Kind:       types.TriggerSweep,
					TenantID:   tenantID,
					OccurredAt: time.Now().UTC(),
				})
				switch {
				case err != nil:
					failed.Add(1)
					s.Metrics.SweepTenant("failed")
					log.Warnw("sweep reconciliation failed", "tenant_id", tenantID, "error", err)
				case out.Changed:
					changed.Add(1)
					s.Metrics.SweepTenant("changed")
				default:
					unchanged.Add(1)
					s.Metrics.SweepTenant("unchanged")
				}
			})
		}
		p.Wait()

		after = batch[len(batch)-1].TenantID
		if len(batch) < cfg.BatchSize {
			break
		}
	}

	resp := &dto.SweepResponse{
		SweepID:   sweepID,
		Scanned:   int(scanned.Load()),
		Changed:   int(changed.Load()),
		Unchanged: int(unchanged.Load()),
		Failed:    int(failed.Load()),
		Duration:  time.Since(start).String(),
	}
	log.Infow("billing sweep finished",
		"scanned", resp.Scanned,
		"changed", resp.Changed,
		"failed", resp.Failed,
		"duration", resp.Duration,
	)
	return resp, nil
}

func (s *sweepService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Config.Sweep.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.Logger.Errorw("billing sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
