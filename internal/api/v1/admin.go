package v1

import (
	"net/http"
	"strconv"

	"github.com/flexprice/tiersync/internal/api/dto"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/service"
	"github.com/gin-gonic/gin"
)

// AdminHandler exposes operator tooling over tenant billing records
type AdminHandler struct {
	service service.BillingAdminService
	billing service.BillingService
	log     *logger.Logger
}

func NewAdminHandler(service service.BillingAdminService, billing service.BillingService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{service: service, billing: billing, log: log}
}

func tenantParam(c *gin.Context) (string, error) {
	id := c.Param("tenant_id")
	if id == "" {
		return "", ierr.NewError("tenant ID is required").
			WithHint("Please provide a valid tenant ID").
			Mark(ierr.ErrValidation)
	}
	return id, nil
}

// @Summary Get billing record
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Param tenant_id path string true "Tenant ID"
// @Success 200 {object} dto.BillingRecordResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /admin/tenants/{tenant_id}/billing [get]
func (h *AdminHandler) GetBillingRecord(c *gin.Context) {
	tenantID, err := tenantParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.GetBillingRecord(c.Request.Context(), tenantID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Update billing record
// @Description Sets the manual override, pinned tier, custom limits or bonus window of a tenant
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param tenant_id path string true "Tenant ID"
// @Param request body dto.UpdateBillingRecordRequest true "Update request"
// @Success 200 {object} dto.BillingRecordResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /admin/tenants/{tenant_id}/billing [put]
func (h *AdminHandler) UpdateBillingRecord(c *gin.Context) {
	tenantID, err := tenantParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	var req dto.UpdateBillingRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateBillingRecord(c.Request.Context(), tenantID, req)
	if err != nil {
		h.log.Errorw("failed to update billing record", "tenant_id", tenantID, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List billing audit log
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Param tenant_id path string true "Tenant ID"
// @Param limit query int false "Max entries, newest first"
// @Success 200 {object} dto.ListResponse[dto.AuditLogResponse]
// @Router /admin/tenants/{tenant_id}/audit [get]
func (h *AdminHandler) ListAuditLog(c *gin.Context) {
	tenantID, err := tenantParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			c.Error(ierr.WithError(err).
				WithHint("limit must be a number").
				Mark(ierr.ErrValidation))
			return
		}
	}

	resp, err := h.service.ListAuditLog(c.Request.Context(), tenantID, limit)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Sync a tenant
// @Description Operator triggered reconciliation of any tenant
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Param tenant_id path string true "Tenant ID"
// @Success 200 {object} dto.SyncResponse
// @Router /admin/tenants/{tenant_id}/sync [post]
func (h *AdminHandler) SyncTenant(c *gin.Context) {
	tenantID, err := tenantParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.billing.SyncNow(c.Request.Context(), tenantID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
