package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/flexprice/tiersync/internal/domain/billingprovider"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/types"
)

type responseKind int

const (
	responseNone responseKind = iota
	responseActive
	responseUnavailable
)

// SubscriptionResponse is a tagged fake answer to ListActiveSubscriptions
type SubscriptionResponse struct {
	kind responseKind
	subs []*billingprovider.SubscriptionRef
}

// Active answers with one active subscription on the given price
func Active(plan string) SubscriptionResponse {
	return SubscriptionResponse{
		kind: responseActive,
		subs: []*billingprovider.SubscriptionRef{{
			ID:       "sub_" + plan,
			Status:   billingprovider.SubscriptionStatusActive,
			PriceIDs: []string{plan},
			Created:  time.Now().UTC(),
		}},
	}
}

// ActiveSubscriptions answers with the given subscriptions as is
func ActiveSubscriptions(subs ...*billingprovider.SubscriptionRef) SubscriptionResponse {
	return SubscriptionResponse{kind: responseActive, subs: subs}
}

// None answers with no live subscription
func None() SubscriptionResponse {
	return SubscriptionResponse{kind: responseNone}
}

// Unavailable fails the call as a provider outage
func Unavailable() SubscriptionResponse {
	return SubscriptionResponse{kind: responseUnavailable}
}

func providerUnavailable(op string) error {
	return ierr.NewError("billing provider unavailable").
		WithHint("The billing provider could not be reached").
		WithReportableDetails(map[string]any{"operation": op}).
		Mark(ierr.ErrProviderUnavailable)
}

// FakeGateway is a deterministic billingprovider.Gateway
type FakeGateway struct {
	mu sync.Mutex

	customersByEmail map[string]*billingprovider.CustomerRef
	subscriptions    map[string]SubscriptionResponse
	cancelled        map[string]bool

	// FindCustomerUnavailable makes the email lookup fail as an outage
	FindCustomerUnavailable bool

	calls         map[string]int
	LastCheckout  *billingprovider.CheckoutSessionRequest
	LastPortal    *billingprovider.PortalSessionRequest
	createdSerial int
}

var _ billingprovider.Gateway = (*FakeGateway)(nil)

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		customersByEmail: make(map[string]*billingprovider.CustomerRef),
		subscriptions:    make(map[string]SubscriptionResponse),
		cancelled:        make(map[string]bool),
		calls:            make(map[string]int),
	}
}

// AddCustomer registers a customer findable by email
func (g *FakeGateway) AddCustomer(id, email string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.customersByEmail[strings.ToLower(email)] = &billingprovider.CustomerRef{ID: id, Email: email}
}

// SetSubscriptions sets what ListActiveSubscriptions answers for a customer
func (g *FakeGateway) SetSubscriptions(customerID string, resp SubscriptionResponse) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, sub := range resp.subs {
		sub.CustomerID = customerID
	}
	g.subscriptions[customerID] = resp
}

// Calls returns how often an operation was invoked
func (g *FakeGateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

// TotalCalls counts every provider call
func (g *FakeGateway) TotalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, n := range g.calls {
		total += n
	}
	return total
}

func (g *FakeGateway) FindCustomerByEmail(_ context.Context, email string) (*billingprovider.CustomerRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["find_customer_by_email"]++
	if g.FindCustomerUnavailable {
		return nil, providerUnavailable("find_customer_by_email")
	}
	return g.customersByEmail[strings.ToLower(email)], nil
}

func (g *FakeGateway) CreateCustomer(_ context.Context, email string, tenantID string) (*billingprovider.CustomerRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["create_customer"]++
	g.createdSerial++
	c := &billingprovider.CustomerRef{
		ID:    fmt.Sprintf("cus_created_%d", g.createdSerial),
		Email: email,
	}
	g.customersByEmail[strings.ToLower(email)] = c
	return c, nil
}

func (g *FakeGateway) ListActiveSubscriptions(_ context.Context, customerID string) ([]*billingprovider.SubscriptionRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["list_subscriptions"]++

	resp := g.subscriptions[customerID]
	switch resp.kind {
	case responseUnavailable:
		return nil, providerUnavailable("list_subscriptions")
	case responseActive:
		out := make([]*billingprovider.SubscriptionRef, 0, len(resp.subs))
		for _, sub := range resp.subs {
			c := *sub
			c.CancelAtPeriodEnd = c.CancelAtPeriodEnd || g.cancelled[c.ID]
			out = append(out, &c)
		}
		return out, nil
	}
	return nil, nil
}

func (g *FakeGateway) RetrieveSubscription(_ context.Context, subscriptionID string) (*billingprovider.SubscriptionRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["retrieve_subscription"]++
	return g.findSubscription(subscriptionID)
}

func (g *FakeGateway) ScheduleCancellation(_ context.Context, subscriptionID string) (*billingprovider.SubscriptionRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["schedule_cancellation"]++
	sub, err := g.findSubscription(subscriptionID)
	if err != nil {
		return nil, err
	}
	g.cancelled[subscriptionID] = true
	sub.CancelAtPeriodEnd = true
	return sub, nil
}

func (g *FakeGateway) findSubscription(subscriptionID string) (*billingprovider.SubscriptionRef, error) {
	for _, resp := range g.subscriptions {
		if resp.kind == responseUnavailable {
			continue
		}
		for _, sub := range resp.subs {
			if sub.ID == subscriptionID {
				c := *sub
				c.CancelAtPeriodEnd = c.CancelAtPeriodEnd || g.cancelled[c.ID]
				return &c, nil
			}
		}
	}
	return nil, ierr.NewError("subscription not found").
		WithReportableDetails(map[string]any{"subscription_id": subscriptionID}).
		Mark(ierr.ErrNotFound)
}

func (g *FakeGateway) CreateCheckoutSession(_ context.Context, req *billingprovider.CheckoutSessionRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["create_checkout_session"]++
	c := *req
	g.LastCheckout = &c
	return "https://checkout.test/session/" + req.TenantID + "/" + req.PlanIdentifier, nil
}

func (g *FakeGateway) CreatePortalSession(_ context.Context, req *billingprovider.PortalSessionRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["create_portal_session"]++
	c := *req
	g.LastPortal = &c
	return "https://portal.test/session/" + req.CustomerID, nil
}

// FakeEventVerifier accepts every payload signed with its signature and
// returns the queued event.
type FakeEventVerifier struct {
	Signature string
	Event     *billingprovider.Event
}

func (v *FakeEventVerifier) VerifyEvent(_ []byte, signatureHeader string) (*billingprovider.Event, error) {
	if signatureHeader == "" || signatureHeader != v.Signature {
		return nil, ierr.NewError("invalid webhook signature").Mark(ierr.ErrInvalidSignature)
	}
	return v.Event, nil
}

// NewHintEvent builds a recognised provider event
func NewHintEvent(kind types.ReconciliationTrigger, hint types.ReconciliationEvent) *billingprovider.Event {
	hint.Kind = kind
	if hint.OccurredAt.IsZero() {
		hint.OccurredAt = time.Now().UTC()
	}
	return &billingprovider.Event{ID: hint.EventID, Type: hint.ProviderEvent, Hint: &hint}
}
