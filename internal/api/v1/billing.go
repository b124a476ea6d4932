package v1

import (
	"net/http"

	"github.com/flexprice/tiersync/internal/api/dto"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/service"
	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	service service.BillingService
	log     *logger.Logger
}

func NewBillingHandler(service service.BillingService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{service: service, log: log}
}

// @Summary Get current tier
// @Description Returns the persisted tier of the caller's tenant. Never contacts the billing provider.
// @Tags Billing
// @Produce json
// @Security ApiKeyAuth
// @Param tenant_id query string false "Tenant ID, operators only"
// @Success 200 {object} dto.CurrentTierResponse
// @Failure 403 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /billing/tier [get]
func (h *BillingHandler) GetCurrentTier(c *gin.Context) {
	tenantID, err := targetTenant(c, c.Query("tenant_id"))
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.GetCurrentTier(c.Request.Context(), tenantID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Sync tier
// @Description Reconciles the tenant's tier against the billing provider now. When the provider is unreachable the persisted tier is returned with refresh_failed set.
// @Tags Billing
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.SyncRequest false "Sync request"
// @Success 200 {object} dto.SyncResponse
// @Failure 403 {object} ierr.ErrorResponse
// @Failure 429 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /billing/sync [post]
func (h *BillingHandler) SyncNow(c *gin.Context) {
	var req dto.SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	tenantID, err := targetTenant(c, req.TenantID)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.SyncNow(c.Request.Context(), tenantID)
	if err != nil {
		h.log.Errorw("failed to sync tier", "tenant_id", tenantID, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Create checkout session
// @Description Starts a billing provider checkout for a catalog plan
// @Tags Billing
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.CreateCheckoutSessionRequest true "Checkout request"
// @Success 200 {object} dto.RedirectResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 503 {object} ierr.ErrorResponse
// @Router /billing/checkout [post]
func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	var req dto.CreateCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	tenantID, err := targetTenant(c, "")
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.CreateCheckoutSession(c.Request.Context(), tenantID, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Create billing portal session
// @Description Opens the billing provider's self-service portal
// @Tags Billing
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.CreatePortalSessionRequest false "Portal request"
// @Success 200 {object} dto.RedirectResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 503 {object} ierr.ErrorResponse
// @Router /billing/portal [post]
func (h *BillingHandler) CreatePortalSession(c *gin.Context) {
	var req dto.CreatePortalSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}

	tenantID, err := targetTenant(c, "")
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.CreatePortalSession(c.Request.Context(), tenantID, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Cancel subscription
// @Description Schedules cancellation of the tenant's subscription at the end of the current period
// @Tags Billing
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.CancelSubscriptionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 503 {object} ierr.ErrorResponse
// @Router /billing/cancel [post]
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	tenantID, err := targetTenant(c, "")
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.ScheduleCancellation(c.Request.Context(), tenantID)
	if err != nil {
		h.log.Errorw("failed to cancel subscription", "tenant_id", tenantID, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
