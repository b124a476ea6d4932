package billingprovider

import (
	"time"

	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
)

// SubscriptionStatus mirrors the provider's subscription states we act on
type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid     SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
)

// Entitling is true for the states that grant a paid tier
func (s SubscriptionStatus) Entitling() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

type CustomerRef struct {
	ID    string
	Email string
}

// SubscriptionRef is the provider's current view of one subscription
type SubscriptionRef struct {
	ID                string
	CustomerID        string
	Status            SubscriptionStatus
	PriceIDs          []string
	ProductIDs        []string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time
	Created           time.Time
}

// PlanIdentifiers lists every identifier the tier catalog may know
func (s *SubscriptionRef) PlanIdentifiers() []string {
	return lo.Uniq(append(append([]string{}, s.PriceIDs...), s.ProductIDs...))
}

// CheckoutSessionRequest carries either a customer or an email
type CheckoutSessionRequest struct {
	TenantID       string
	CustomerID     string
	Email          string
	PlanIdentifier string
	SuccessURL     string
	CancelURL      string
}

type PortalSessionRequest struct {
	CustomerID string
	ReturnURL  string
}

// Event is a verified provider webhook, classified into a reconciliation
// hint. Kind is empty for event types we ignore.
type Event struct {
	ID   string
	Type string
	Hint *types.ReconciliationEvent
	// Malformed is set for an authentic event of a handled type whose data
	// object could not be read. It carries no hint.
	Malformed bool
}

func (e *Event) Recognized() bool {
	return e != nil && e.Hint != nil && e.Hint.Kind != ""
}
