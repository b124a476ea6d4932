package dto

// WebhookResponse is returned to the billing provider. Anything other than
// a signature failure is acknowledged so the provider stops redelivering.
type WebhookResponse struct {
	Received       bool   `json:"received"`
	EventID        string `json:"event_id,omitempty"`
	EventType      string `json:"event_type,omitempty"`
	Ignored        bool   `json:"ignored,omitempty"`
	TenantResolved bool   `json:"tenant_resolved"`
	Queued         bool   `json:"queued,omitempty"`
}
