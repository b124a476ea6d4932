package svix

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/flexprice/tiersync/internal/config"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
	svix "github.com/svix/svix-webhooks/go"
	"github.com/svix/svix-webhooks/go/models"
)

// EventTierUpdated is sent to a tenant's endpoints whenever its tier changes
const EventTierUpdated = "tenant.tier.updated"

// Client wraps the Svix SDK client. A disabled client accepts every call
// and sends nothing.
type Client struct {
	client  *svix.Svix
	logger  *logger.Logger
	enabled bool
}

func NewClient(cfg *config.Configuration, log *logger.Logger) (*Client, error) {
	if !cfg.Svix.Enabled {
		return &Client{logger: log}, nil
	}

	opts := &svix.SvixOptions{}
	if cfg.Svix.BaseURL != "" {
		serverURL, err := url.Parse(cfg.Svix.BaseURL)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Invalid svix base URL").
				Mark(ierr.ErrValidation)
		}
		opts.ServerUrl = serverURL
	}

	svixClient, err := svix.New(cfg.Svix.AuthToken, opts)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create svix client").
			Mark(ierr.ErrSystem)
	}

	return &Client{
		client:  svixClient,
		logger:  log,
		enabled: true,
	}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// GetOrCreateApplication returns the tenant's Svix application, keyed by
// tenant id.
func (c *Client) GetOrCreateApplication(ctx context.Context, tenantID string) (string, error) {
	if !c.Enabled() {
		return "", nil
	}

	if _, err := c.client.Application.Get(ctx, tenantID); err == nil {
		return tenantID, nil
	}

	app, err := c.client.Application.Create(ctx, models.ApplicationIn{
		Name: tenantID,
		Uid:  &tenantID,
	}, &svix.ApplicationCreateOptions{})
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to create svix application").
			WithReportableDetails(map[string]any{"tenant_id": tenantID}).
			Mark(ierr.ErrHTTPClient)
	}

	return app.Id, nil
}

// SendMessage delivers payload to the application. idempotencyKey makes a
// redelivered notification a no-op on the Svix side.
func (c *Client) SendMessage(ctx context.Context, applicationID, eventType, idempotencyKey string, payload interface{}) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to marshal webhook payload").
			Mark(ierr.ErrSystem)
	}
	var payloadMap map[string]interface{}
	if err := json.Unmarshal(data, &payloadMap); err != nil {
		return ierr.WithError(err).
			WithHint("Webhook payload must be a JSON object").
			Mark(ierr.ErrSystem)
	}

	opts := &svix.MessageCreateOptions{}
	if idempotencyKey != "" {
		opts.IdempotencyKey = &idempotencyKey
	}

	_, err = c.client.Message.Create(ctx, applicationID, models.MessageIn{
		EventType: eventType,
		Payload:   payloadMap,
	}, opts)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to send svix message").
			WithReportableDetails(map[string]any{
				"application_id": applicationID,
				"event_type":     eventType,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	return nil
}
