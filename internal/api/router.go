package api

import (
	"net/http"

	"github.com/flexprice/tiersync/internal/api/cron"
	v1 "github.com/flexprice/tiersync/internal/api/v1"
	"github.com/flexprice/tiersync/internal/config"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/metrics"
	"github.com/flexprice/tiersync/internal/rest/middleware"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Handlers struct {
	Health  *v1.HealthHandler
	Billing *v1.BillingHandler
	Webhook *v1.WebhookHandler
	Admin   *v1.AdminHandler

	CronSweep *cron.SweepHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, metrics *metrics.Metrics) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.PyroscopeMiddleware(cfg),
		middleware.ErrorHandler(logger, cfg.Deployment.Mode == types.ModeLocal),
	)

	router.GET("/health", handlers.Health.Health)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	public := router.Group("/v1")
	{
		// authenticated by the provider signature, not by our credentials
		public.POST("/webhooks/stripe", handlers.Webhook.HandleStripeWebhook)
	}

	private := router.Group("/v1")
	private.Use(middleware.AuthenticateMiddleware(cfg, logger))

	// one limiter so self-service and operator syncs share a tenant's budget
	syncLimit := middleware.SyncRateLimitMiddleware(cfg)

	billing := private.Group("/billing")
	{
		billing.GET("/tier", handlers.Billing.GetCurrentTier)
		billing.POST("/sync", syncLimit, handlers.Billing.SyncNow)
		billing.POST("/checkout", handlers.Billing.CreateCheckoutSession)
		billing.POST("/portal", handlers.Billing.CreatePortalSession)
		billing.POST("/cancel", handlers.Billing.CancelSubscription)
	}

	admin := private.Group("/admin")
	admin.Use(middleware.RequireOperator(logger))
	{
		tenants := admin.Group("/tenants/:tenant_id")
		tenants.GET("/billing", handlers.Admin.GetBillingRecord)
		tenants.PUT("/billing", handlers.Admin.UpdateBillingRecord)
		tenants.GET("/audit", handlers.Admin.ListAuditLog)
		tenants.POST("/sync", syncLimit, handlers.Admin.SyncTenant)
	}

	cronGroup := private.Group("/cron")
	cronGroup.Use(middleware.RequireOperator(logger))
	{
		cronGroup.POST("/billing/sweep", handlers.CronSweep.SweepBilling)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return router
}
