package stripe

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/flexprice/tiersync/internal/config"
	"github.com/flexprice/tiersync/internal/domain/billingprovider"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Stripe event types that can change a tenant's tier
const (
	EventCheckoutSessionCompleted    = "checkout.session.completed"
	EventInvoicePaid                 = "invoice.paid"
	EventInvoicePaymentSucceeded     = "invoice.payment_succeeded"
	EventCustomerSubscriptionCreated = "customer.subscription.created"
	EventCustomerSubscriptionUpdated = "customer.subscription.updated"
	EventCustomerSubscriptionResumed = "customer.subscription.resumed"
	EventCustomerSubscriptionPaused  = "customer.subscription.paused"
	EventCustomerSubscriptionDeleted = "customer.subscription.deleted"
)

var eventTriggers = map[string]types.ReconciliationTrigger{
	EventCheckoutSessionCompleted:    types.TriggerCheckoutCompleted,
	EventInvoicePaid:                 types.TriggerInvoicePaid,
	EventInvoicePaymentSucceeded:     types.TriggerInvoicePaid,
	EventCustomerSubscriptionCreated: types.TriggerSubscriptionUpdated,
	EventCustomerSubscriptionUpdated: types.TriggerSubscriptionUpdated,
	EventCustomerSubscriptionResumed: types.TriggerSubscriptionUpdated,
	EventCustomerSubscriptionPaused:  types.TriggerSubscriptionUpdated,
	EventCustomerSubscriptionDeleted: types.TriggerSubscriptionCanceled,
}

// WebhookVerifier authenticates Stripe deliveries and turns the ones we
// care about into reconciliation hints.
type WebhookVerifier struct {
	secret string
	logger *logger.Logger
}

var _ billingprovider.EventVerifier = (*WebhookVerifier)(nil)

func NewWebhookVerifier(cfg *config.Configuration, logger *logger.Logger) *WebhookVerifier {
	return &WebhookVerifier{
		secret: cfg.Billing.Stripe.WebhookSecret,
		logger: logger,
	}
}

// VerifyEvent checks the Stripe-Signature header and classifies the event.
// A missing webhook secret is a configuration failure, not a bad request.
func (v *WebhookVerifier) VerifyEvent(payload []byte, signatureHeader string) (*billingprovider.Event, error) {
	if v.secret == "" {
		return nil, ierr.NewError("stripe webhook secret is not configured").
			WithHint("Webhook verification is not configured").
			Mark(ierr.ErrSystem)
	}
	if signatureHeader == "" {
		return nil, ierr.NewError("missing stripe signature header").
			WithHint("Missing webhook signature").
			Mark(ierr.ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		v.logger.Warnw("stripe webhook verification failed", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrInvalidSignature)
	}

	return v.classifyEvent(&event), nil
}

// classifyEvent extracts whom to reconcile. It ignores any status or price
// in the payload beyond logging, the reconciler re-reads the provider.
// A data object that cannot be decoded yields a malformed event without a
// hint, the delivery is still authentic and gets acknowledged.
func (v *WebhookVerifier) classifyEvent(event *stripe.Event) *billingprovider.Event {
	out := &billingprovider.Event{
		ID:   event.ID,
		Type: string(event.Type),
	}

	trigger, ok := eventTriggers[string(event.Type)]
	if !ok {
		return out
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		v.logger.Warnw("stripe event has no data object",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		out.Malformed = true
		return out
	}

	var obj eventObject
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		v.logger.Warnw("stripe event data object could not be decoded",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		out.Malformed = true
		return out
	}

	hint := &types.ReconciliationEvent{
		Kind:          trigger,
		ProviderEvent: string(event.Type),
		EventID:       event.ID,
		CustomerID:    obj.Customer.ID,
		OccurredAt:    time.Unix(event.Created, 0).UTC(),
	}

	switch obj.Object {
	case "subscription":
		hint.SubscriptionID = obj.ID
		hint.PlanIdentifier = obj.firstPriceID()
	case "checkout.session":
		hint.SubscriptionID = obj.Subscription.ID
		hint.Email = lo.CoalesceOrEmpty(obj.CustomerDetails.Email, obj.CustomerEmail)
		hint.TenantID = obj.ClientReferenceID
	case "invoice":
		hint.SubscriptionID = lo.CoalesceOrEmpty(obj.Subscription.ID, obj.Parent.SubscriptionDetails.Subscription.ID)
		hint.Email = obj.CustomerEmail
		hint.PlanIdentifier = obj.Lines.firstPriceID()
	}
	if tenantID := obj.Metadata["tenant_id"]; tenantID != "" && hint.TenantID == "" {
		hint.TenantID = tenantID
	}
	hint.Email = strings.TrimSpace(strings.ToLower(hint.Email))

	out.Hint = hint
	return out
}

// eventObject is the subset of a Stripe checkout session, invoice or
// subscription object used to find the affected tenant.
type eventObject struct {
	ID                string            `json:"id"`
	Object            string            `json:"object"`
	Customer          expandableID      `json:"customer"`
	Subscription      expandableID      `json:"subscription"`
	CustomerEmail     string            `json:"customer_email"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
	CustomerDetails   struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Parent struct {
		SubscriptionDetails struct {
			Subscription expandableID `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	Items lineList `json:"items"`
	Lines lineList `json:"lines"`
}

func (o *eventObject) firstPriceID() string {
	return o.Items.firstPriceID()
}

type lineList struct {
	Data []struct {
		Price struct {
			ID string `json:"id"`
		} `json:"price"`
		Pricing struct {
			PriceDetails struct {
				Price string `json:"price"`
			} `json:"price_details"`
		} `json:"pricing"`
	} `json:"data"`
}

func (l lineList) firstPriceID() string {
	for _, d := range l.Data {
		if id := lo.CoalesceOrEmpty(d.Price.ID, d.Pricing.PriceDetails.Price); id != "" {
			return id
		}
	}
	return ""
}

// expandableID accepts either a bare object id or the expanded object
type expandableID struct {
	ID string
}

func (e *expandableID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &e.ID)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	e.ID = obj.ID
	return nil
}
