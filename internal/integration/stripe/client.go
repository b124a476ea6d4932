package stripe

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/flexprice/tiersync/internal/config"
	"github.com/flexprice/tiersync/internal/domain/billingprovider"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/metrics"
	"github.com/flexprice/tiersync/internal/sentry"
	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
)

// Gateway implements billingprovider.Gateway on the Stripe API
type Gateway struct {
	client  *stripe.Client
	cfg     config.StripeConfig
	retry   retryPolicy
	logger  *logger.Logger
	sentry  *sentry.Service
	metrics *metrics.Metrics
}

var _ billingprovider.Gateway = (*Gateway)(nil)

// NewGateway builds the Stripe backed gateway. A missing secret key is not
// an error at startup, every call then fails as ProviderUnavailable.
func NewGateway(
	cfg *config.Configuration,
	logger *logger.Logger,
	sentry *sentry.Service,
	metrics *metrics.Metrics,
) *Gateway {
	stripeCfg := cfg.Billing.Stripe
	if stripeCfg.SecretKey == "" {
		logger.Warnw("stripe secret key is not configured, billing provider calls will fail")
	}

	return &Gateway{
		client: stripe.NewClient(stripeCfg.SecretKey, nil),
		cfg:    stripeCfg,
		retry: retryPolicy{
			maxRetries:      stripeCfg.MaxRateLimitRetries,
			initialInterval: stripeCfg.InitialBackoff,
			maxInterval:     stripeCfg.MaxBackoff,
		},
		logger:  logger,
		sentry:  sentry,
		metrics: metrics,
	}
}

// FindCustomerByEmail returns nil without error when no customer matches
func (g *Gateway) FindCustomerByEmail(ctx context.Context, email string) (*billingprovider.CustomerRef, error) {
	if email == "" {
		return nil, nil
	}

	var found *billingprovider.CustomerRef
	err := g.call(ctx, "find_customer_by_email", func(ctx context.Context) error {
		params := &stripe.CustomerSearchParams{}
		params.Query = "email:'" + escapeSearchValue(email) + "'"
		params.Limit = stripe.Int64(1)

		for c, err := range g.client.V1Customers.Search(ctx, params) {
			if err != nil {
				return err
			}
			found = &billingprovider.CustomerRef{ID: c.ID, Email: c.Email}
			break
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (g *Gateway) CreateCustomer(ctx context.Context, email string, tenantID string) (*billingprovider.CustomerRef, error) {
	var created *billingprovider.CustomerRef
	err := g.call(ctx, "create_customer", func(ctx context.Context) error {
		params := &stripe.CustomerCreateParams{
			Email: stripe.String(email),
			Metadata: map[string]string{
				"tenant_id": tenantID,
			},
		}
		c, err := g.client.V1Customers.Create(ctx, params)
		if err != nil {
			return err
		}
		created = &billingprovider.CustomerRef{ID: c.ID, Email: c.Email}
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.logger.Infow("created stripe customer",
		"tenant_id", tenantID,
		"stripe_customer_id", created.ID,
	)
	return created, nil
}

// ListActiveSubscriptions lists the customer's live subscriptions and keeps
// the active and trialing ones, newest first.
func (g *Gateway) ListActiveSubscriptions(ctx context.Context, customerID string) ([]*billingprovider.SubscriptionRef, error) {
	var subs []*billingprovider.SubscriptionRef
	err := g.call(ctx, "list_subscriptions", func(ctx context.Context) error {
		subs = subs[:0]
		params := &stripe.SubscriptionListParams{
			Customer: stripe.String(customerID),
		}
		params.Limit = stripe.Int64(20)

		for s, err := range g.client.V1Subscriptions.List(ctx, params) {
			if err != nil {
				return err
			}
			ref := toSubscriptionRef(s)
			if ref.Status.Entitling() {
				subs = append(subs, ref)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].Created.After(subs[j].Created)
	})
	return subs, nil
}

func (g *Gateway) RetrieveSubscription(ctx context.Context, subscriptionID string) (*billingprovider.SubscriptionRef, error) {
	var ref *billingprovider.SubscriptionRef
	err := g.call(ctx, "retrieve_subscription", func(ctx context.Context) error {
		s, err := g.client.V1Subscriptions.Retrieve(ctx, subscriptionID, &stripe.SubscriptionRetrieveParams{})
		if err != nil {
			return err
		}
		ref = toSubscriptionRef(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (g *Gateway) ScheduleCancellation(ctx context.Context, subscriptionID string) (*billingprovider.SubscriptionRef, error) {
	var ref *billingprovider.SubscriptionRef
	err := g.call(ctx, "schedule_cancellation", func(ctx context.Context) error {
		params := &stripe.SubscriptionUpdateParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		}
		s, err := g.client.V1Subscriptions.Update(ctx, subscriptionID, params)
		if err != nil {
			return err
		}
		ref = toSubscriptionRef(s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.logger.Infow("scheduled stripe subscription cancellation",
		"stripe_subscription_id", subscriptionID,
		"current_period_end", ref.CurrentPeriodEnd,
	)
	return ref, nil
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, req *billingprovider.CheckoutSessionRequest) (string, error) {
	var url string
	err := g.call(ctx, "create_checkout_session", func(ctx context.Context) error {
		metadata := map[string]string{"tenant_id": req.TenantID}
		params := &stripe.CheckoutSessionCreateParams{
			Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
			ClientReferenceID: stripe.String(req.TenantID),
			SuccessURL:        stripe.String(req.SuccessURL),
			CancelURL:         stripe.String(req.CancelURL),
			LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
				{
					Price:    stripe.String(req.PlanIdentifier),
					Quantity: stripe.Int64(1),
				},
			},
			Metadata: metadata,
			SubscriptionData: &stripe.CheckoutSessionCreateSubscriptionDataParams{
				Metadata: metadata,
			},
		}
		if req.CustomerID != "" {
			params.Customer = stripe.String(req.CustomerID)
		} else {
			params.CustomerEmail = stripe.String(req.Email)
		}

		session, err := g.client.V1CheckoutSessions.Create(ctx, params)
		if err != nil {
			return err
		}
		url = session.URL
		return nil
	})
	return url, err
}

func (g *Gateway) CreatePortalSession(ctx context.Context, req *billingprovider.PortalSessionRequest) (string, error) {
	var url string
	err := g.call(ctx, "create_portal_session", func(ctx context.Context) error {
		params := &stripe.BillingPortalSessionCreateParams{
			Customer:  stripe.String(req.CustomerID),
			ReturnURL: stripe.String(req.ReturnURL),
		}
		session, err := g.client.V1BillingPortalSessions.Create(ctx, params)
		if err != nil {
			return err
		}
		url = session.URL
		return nil
	})
	return url, err
}

// call runs one provider operation under the configured timeout, retrying
// rate-limit responses, and maps whatever fails into our error taxonomy.
func (g *Gateway) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	span, ctx := g.sentry.StartProviderSpan(ctx, operation, nil)
	if span != nil {
		defer span.Finish()
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := g.retry.do(ctx, func() error { return fn(ctx) }, func(attempt uint64, wait time.Duration, err error) {
		g.logger.Warnw("stripe rate limited, backing off",
			"operation", operation,
			"attempt", attempt,
			"wait", wait,
		)
	})
	if err == nil {
		return nil
	}

	mapped := mapError(ctx, operation, err)
	g.metrics.ProviderError(operation, errorClass(mapped))
	g.logger.Errorw("stripe call failed",
		"operation", operation,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err,
	)
	return mapped
}

func toSubscriptionRef(s *stripe.Subscription) *billingprovider.SubscriptionRef {
	ref := &billingprovider.SubscriptionRef{
		ID:                s.ID,
		Status:            billingprovider.SubscriptionStatus(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Created:           time.Unix(s.Created, 0).UTC(),
	}
	if s.Customer != nil {
		ref.CustomerID = s.Customer.ID
	}
	if s.Items == nil {
		return ref
	}

	var periodEnd int64
	for _, item := range s.Items.Data {
		if item == nil || item.Price == nil {
			continue
		}
		ref.PriceIDs = append(ref.PriceIDs, item.Price.ID)
		if item.Price.Product != nil && item.Price.Product.ID != "" {
			ref.ProductIDs = append(ref.ProductIDs, item.Price.Product.ID)
		}
		periodEnd = max(periodEnd, item.CurrentPeriodEnd)
	}
	ref.PriceIDs = lo.Uniq(ref.PriceIDs)
	ref.ProductIDs = lo.Uniq(ref.ProductIDs)
	if periodEnd > 0 {
		ref.CurrentPeriodEnd = lo.ToPtr(time.Unix(periodEnd, 0).UTC())
	}
	return ref
}

var searchValueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// escapeSearchValue quotes a value for the Stripe search query language
func escapeSearchValue(v string) string {
	return searchValueEscaper.Replace(v)
}

// errorClass labels provider failures for metrics
func errorClass(err error) string {
	switch {
	case ierr.IsNotFound(err):
		return "not_found"
	case ierr.IsValidation(err):
		return "invalid_request"
	case ierr.IsProviderUnavailable(err):
		return "unavailable"
	default:
		return "other"
	}
}
