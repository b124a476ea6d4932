package v1

import (
	"io"
	"net/http"
	"time"

	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/metrics"
	"github.com/flexprice/tiersync/internal/service"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/gin-gonic/gin"
)

// maxWebhookBodyBytes matches the largest event Stripe sends
const maxWebhookBodyBytes = 512 * 1024

// WebhookHandler receives billing provider events
type WebhookHandler struct {
	service service.WebhookService
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewWebhookHandler(service service.WebhookService, metrics *metrics.Metrics, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, metrics: metrics, logger: logger}
}

// @Summary Stripe webhook
// @Description Receives Stripe events. Only signature failures are rejected, every other delivery is acknowledged.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} dto.WebhookResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	start := time.Now()
	eventType := "unknown"
	status := http.StatusOK
	defer func() {
		h.metrics.Webhook(eventType, status, time.Since(start))
	}()

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		status = http.StatusBadRequest
		c.Error(ierr.WithError(err).
			WithHint("Failed to read request body").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader(types.HeaderStripeSignature))
	if err != nil {
		status = ierr.HTTPStatusFromErr(err)
		c.Error(err)
		return
	}

	eventType = resp.EventType
	if resp.Ignored {
		eventType = "ignored"
	}
	c.JSON(http.StatusOK, resp)
}
