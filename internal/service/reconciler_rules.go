package service

import (
	"context"
	"sort"
	"time"

	"github.com/flexprice/tiersync/internal/domain/billingprovider"
	"github.com/flexprice/tiersync/internal/domain/billingrecord"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
)

// evaluation is the working state of one pass through the precedence rules.
// Rules only modify target; current is the record as read.
type evaluation struct {
	current *billingrecord.BillingRecord
	target  *billingrecord.BillingRecord
	source  types.TierSource
	now     time.Time
	state   *providerState
}

// precedenceRule decides the target tier or passes to the next rule.
// A rule returning an error aborts the pass without writing.
type precedenceRule struct {
	name   string
	decide func(ctx context.Context, e *evaluation) (decided bool, err error)
}

// rules run top to bottom, the first one to decide wins
func (s *reconciler) rules() []precedenceRule {
	return []precedenceRule{
		{name: "manual_override", decide: s.ruleManualOverride},
		{name: "bonus", decide: s.ruleBonus},
		{name: "customer", decide: s.ruleCustomer},
		{name: "subscription", decide: s.ruleSubscription},
	}
}

func (s *reconciler) evaluate(ctx context.Context, e *evaluation) error {
	for _, rule := range s.rules() {
		decided, err := rule.decide(ctx, e)
		if err != nil {
			return err
		}
		if decided {
			s.Logger.WithContext(ctx).Debugw("tier decided",
				"tenant_id", e.current.TenantID,
				"rule", rule.name,
				"tier", e.target.Tier,
			)
			break
		}
	}

	// custom limits only exist on enterprise, except where the operator
	// froze the record
	if e.source != types.TierSourceManualOverride && e.target.Tier != types.TierEnterprise {
		e.target.CustomLimits = nil
	}
	return nil
}

// ruleManualOverride freezes the record, the provider is never contacted
func (s *reconciler) ruleManualOverride(_ context.Context, e *evaluation) (bool, error) {
	if !e.current.IsManualOverride {
		return false, nil
	}
	e.target = e.current.Clone()
	e.source = types.TierSourceManualOverride
	return true, nil
}

// ruleBonus grants the promotional tier while the bonus window is open
func (s *reconciler) ruleBonus(_ context.Context, e *evaluation) (bool, error) {
	if !e.current.BonusActive(e.now) {
		return false, nil
	}
	bonusTier := s.Config.Billing.DefaultBonusTier
	if e.current.BonusTier != nil {
		bonusTier = *e.current.BonusTier
	}
	e.target.Tier = bonusTier
	e.source = types.TierSourceBonus
	return true, nil
}

// ruleCustomer resolves the billing customer. A tenant without one has
// never subscribed and is free.
func (s *reconciler) ruleCustomer(ctx context.Context, e *evaluation) (bool, error) {
	customerID := e.current.CustomerID()
	if customerID == "" {
		found, err := e.state.customerByEmail(ctx)
		if err != nil {
			return false, err
		}
		if found == nil {
			e.target.Tier = types.TierFree
			e.target.BillingSubscriptionID = nil
			e.source = types.TierSourceNoCustomer
			return true, nil
		}
		customerID = found.ID
	}

	e.target.BillingCustomerID = lo.ToPtr(customerID)
	return false, nil
}

// ruleSubscription derives the tier from the customer's live subscriptions
func (s *reconciler) ruleSubscription(ctx context.Context, e *evaluation) (bool, error) {
	customerID := lo.FromPtr(e.target.BillingCustomerID)
	log := s.Logger.WithContext(ctx)

	subs, err := e.state.activeSubscriptions(ctx, customerID)
	if err != nil {
		return false, err
	}

	e.source = types.TierSourceProvider
	if len(subs) == 0 {
		e.target.Tier = types.TierFree
		e.target.BillingSubscriptionID = nil
		return true, nil
	}

	if len(subs) > 1 {
		log.Warnw("customer has more than one active subscription, using the most recent",
			"tenant_id", e.current.TenantID,
			"customer_id", customerID,
			"subscription_ids", lo.Map(subs, func(sub *billingprovider.SubscriptionRef, _ int) string { return sub.ID }),
		)
	}
	sub := subs[0]

	resolved, matched := s.Catalog.ResolveHighest(sub.PlanIdentifiers()...)
	if !matched {
		log.Warnw("unknown plan identifier, resolving to free",
			"tenant_id", e.current.TenantID,
			"subscription_id", sub.ID,
			"plan_identifiers", sub.PlanIdentifiers(),
			"error", ierr.ErrUnknownPlan,
		)
	}

	e.target.Tier = resolved
	e.target.BillingSubscriptionID = lo.ToPtr(sub.ID)
	return true, nil
}

// providerState memoises the provider reads of one reconciliation pass
type providerState struct {
	params   ServiceParams
	tenantID string

	customerFetched bool
	customer        *billingprovider.CustomerRef

	subsFetched    bool
	subsCustomerID string
	subs           []*billingprovider.SubscriptionRef
}

func newProviderState(params ServiceParams, tenantID string) *providerState {
	return &providerState{params: params, tenantID: tenantID}
}

// customerByEmail looks the customer up by the tenant's contact email.
// A tenant without a directory entry or email has no customer, and neither
// does one whose email leads to a customer another tenant already owns.
func (p *providerState) customerByEmail(ctx context.Context) (*billingprovider.CustomerRef, error) {
	if p.customerFetched {
		return p.customer, nil
	}

	t, err := p.params.TenantRepo.GetByID(ctx, p.tenantID)
	if err != nil && !ierr.IsTenantNotFound(err) && !ierr.IsNotFound(err) {
		return nil, err
	}
	if t == nil || t.ContactEmail == "" {
		p.params.Logger.WithContext(ctx).Warnw("tenant has no contact email, cannot look up billing customer",
			"tenant_id", p.tenantID,
		)
		p.customerFetched = true
		return nil, nil
	}

	customer, err := p.params.Gateway.FindCustomerByEmail(ctx, t.ContactEmail)
	if err != nil {
		return nil, err
	}
	if customer != nil {
		owned, err := customerOwnedElsewhere(ctx, p.params, p.tenantID, customer.ID)
		if err != nil {
			return nil, err
		}
		if owned {
			customer = nil
		}
	}
	p.customer = customer
	p.customerFetched = true
	return customer, nil
}

// activeSubscriptions returns the entitling subscriptions newest first
func (p *providerState) activeSubscriptions(ctx context.Context, customerID string) ([]*billingprovider.SubscriptionRef, error) {
	if p.subsFetched && p.subsCustomerID == customerID {
		return p.subs, nil
	}

	subs, err := p.params.Gateway.ListActiveSubscriptions(ctx, customerID)
	if ierr.IsNotFound(err) {
		// the customer was deleted at the provider
		subs, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	subs = lo.Filter(subs, func(sub *billingprovider.SubscriptionRef, _ int) bool {
		return sub != nil && sub.Status.Entitling()
	})
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].Created.After(subs[j].Created)
	})

	p.subs = subs
	p.subsCustomerID = customerID
	p.subsFetched = true
	return subs, nil
}

// customerOwnedElsewhere reports whether another tenant's record already
// links the customer. Contact emails are not unique across tenants, the
// customer stays with the tenant that linked it first.
func customerOwnedElsewhere(ctx context.Context, params ServiceParams, tenantID, customerID string) (bool, error) {
	owner, err := params.BillingRecordRepo.FindByCustomerID(ctx, customerID)
	if ierr.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if owner.TenantID == tenantID {
		return false, nil
	}
	params.Logger.WithContext(ctx).Warnw("billing customer found by email is linked to another tenant, ignoring it",
		"tenant_id", tenantID,
		"customer_id", customerID,
		"owner_tenant_id", owner.TenantID,
	)
	return true, nil
}
