package service

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/pubsub"
	pubsubRouter "github.com/flexprice/tiersync/internal/pubsub/router"
	"github.com/flexprice/tiersync/internal/types"
)

const reconciliationHandlerName = "tier_reconciliation_handler"

// ReconciliationDispatcher hands reconciliation requests either to the
// reconciler directly or to the reconciliation topic.
type ReconciliationDispatcher interface {
	// Dispatch reports queued=true when the request was published for the
	// consumer rather than run inline.
	Dispatch(ctx context.Context, req *types.ReconciliationRequest) (queued bool, err error)
	// RegisterHandler subscribes the reconciliation consumer on router
	RegisterHandler(router *pubsubRouter.Router)
}

type reconciliationDispatcher struct {
	ServiceParams
	reconciler Reconciler
	pubSub     pubsub.PubSub
}

// NewReconciliationDispatcher builds the dispatcher. A nil pubSub always
// reconciles inline.
func NewReconciliationDispatcher(params ServiceParams, reconciler Reconciler, pubSub pubsub.PubSub) ReconciliationDispatcher {
	return &reconciliationDispatcher{
		ServiceParams: params,
		reconciler:    reconciler,
		pubSub:        pubSub,
	}
}

func (d *reconciliationDispatcher) Dispatch(ctx context.Context, req *types.ReconciliationRequest) (bool, error) {
	if d.Config.Reconciliation.Async && d.pubSub != nil {
		err := d.publish(ctx, req)
		if err == nil {
			return true, nil
		}
		d.Metrics.AsyncDispatchFailure()
		d.Logger.WithContext(ctx).Warnw("failed to publish reconciliation request, reconciling inline",
			"tenant_id", req.TenantID,
			"error", err,
		)
	}

	_, err := d.reconciler.Reconcile(ctx, req.TenantID, req.Event)
	return false, err
}

func (d *reconciliationDispatcher) publish(ctx context.Context, req *types.ReconciliationRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode reconciliation request").
			Mark(ierr.ErrSystem)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("tenant_id", req.TenantID)
	if requestID := types.GetRequestID(ctx); requestID != "" {
		msg.Metadata.Set("request_id", requestID)
	}
	if req.Event != nil {
		msg.Metadata.Set("trigger", string(req.Event.Kind))
	}

	if err := d.pubSub.Publish(d.Config.Reconciliation.Topic, msg); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to publish reconciliation request").
			WithReportableDetails(map[string]any{"topic": d.Config.Reconciliation.Topic}).
			Mark(ierr.ErrSystem)
	}
	return nil
}

func (d *reconciliationDispatcher) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		reconciliationHandlerName,
		d.Config.Reconciliation.Topic,
		d.pubSub,
		d.handleMessage,
	)
	d.Logger.Infow("registered reconciliation handler",
		"topic", d.Config.Reconciliation.Topic,
	)
}

// handleMessage runs one queued reconciliation. Returned errors go back to
// the router for retry and, once exhausted, the dead letter topic.
func (d *reconciliationDispatcher) handleMessage(msg *message.Message) error {
	var req types.ReconciliationRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return ierr.WithError(err).
			WithHint("Malformed reconciliation request").
			WithReportableDetails(map[string]any{"message_uuid": msg.UUID}).
			Mark(ierr.ErrValidation)
	}

	ctx := msg.Context()
	ctx = types.SetTenantID(ctx, req.TenantID)
	if requestID := msg.Metadata.Get("request_id"); requestID != "" {
		ctx = types.SetRequestID(ctx, requestID)
	}

	span, ctx := d.Sentry.StartConsumerSpan(ctx, d.Config.Reconciliation.Topic)
	if span != nil {
		defer span.Finish()
	}

	_, err := d.reconciler.Reconcile(ctx, req.TenantID, req.Event)
	return err
}
