package cron

import (
	"net/http"

	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/service"
	"github.com/gin-gonic/gin"
)

// SweepHandler runs the stale tenant sweep on demand, for schedulers that
// call an endpoint instead of running the sweeper mode
type SweepHandler struct {
	sweepService service.SweepService
	logger       *logger.Logger
}

func NewSweepHandler(sweepService service.SweepService, logger *logger.Logger) *SweepHandler {
	return &SweepHandler{
		sweepService: sweepService,
		logger:       logger,
	}
}

// @Summary Sweep stale billing records
// @Description Reconciles paid tenants that have not received a webhook recently
// @Tags Cron
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.SweepResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /cron/billing/sweep [post]
func (h *SweepHandler) SweepBilling(c *gin.Context) {
	h.logger.Infow("starting billing sweep cron job")

	resp, err := h.sweepService.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to sweep billing records",
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
