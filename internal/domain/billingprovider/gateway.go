package billingprovider

import "context"

// Gateway is the narrow surface of the billing provider used by this
// service. Every call is a stateless RPC with a bounded timeout. Transport
// failures, timeouts and exhausted rate-limit retries are reported as
// ErrProviderUnavailable.
type Gateway interface {
	FindCustomerByEmail(ctx context.Context, email string) (*CustomerRef, error)
	CreateCustomer(ctx context.Context, email string, tenantID string) (*CustomerRef, error)
	// ListActiveSubscriptions always queries the provider, never a cache
	ListActiveSubscriptions(ctx context.Context, customerID string) ([]*SubscriptionRef, error)
	// RetrieveSubscription returns ErrNotFound for unknown subscriptions
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*SubscriptionRef, error)
	// ScheduleCancellation sets cancel at period end, it does not revoke
	ScheduleCancellation(ctx context.Context, subscriptionID string) (*SubscriptionRef, error)
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (string, error)
	CreatePortalSession(ctx context.Context, req *PortalSessionRequest) (string, error)
}

// EventVerifier authenticates and classifies raw webhook deliveries
type EventVerifier interface {
	// VerifyEvent returns ErrInvalidSignature for unauthentic payloads.
	// An authentic payload with an unreadable data object is returned
	// as a malformed event, not an error.
	VerifyEvent(payload []byte, signatureHeader string) (*Event, error)
}
