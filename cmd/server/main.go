package main

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	lambdaEvents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	_ "github.com/flexprice/tiersync/docs/swagger"
	"github.com/flexprice/tiersync/internal/api"
	"github.com/flexprice/tiersync/internal/api/cron"
	v1 "github.com/flexprice/tiersync/internal/api/v1"
	"github.com/flexprice/tiersync/internal/cache"
	"github.com/flexprice/tiersync/internal/config"
	"github.com/flexprice/tiersync/internal/domain/billingprovider"
	"github.com/flexprice/tiersync/internal/domain/tier"
	stripeintegration "github.com/flexprice/tiersync/internal/integration/stripe"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/metrics"
	"github.com/flexprice/tiersync/internal/postgres"
	"github.com/flexprice/tiersync/internal/pubsub"
	"github.com/flexprice/tiersync/internal/pubsub/kafka"
	"github.com/flexprice/tiersync/internal/pubsub/memory"
	pubsubRouter "github.com/flexprice/tiersync/internal/pubsub/router"
	"github.com/flexprice/tiersync/internal/pyroscope"
	"github.com/flexprice/tiersync/internal/repository"
	"github.com/flexprice/tiersync/internal/sentry"
	"github.com/flexprice/tiersync/internal/service"
	"github.com/flexprice/tiersync/internal/svix"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/flexprice/tiersync/internal/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// @title Tiersync API
// @version 1.0
// @description Keeps each tenant's subscription tier in sync with the billing provider
// @BasePath /v1
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description Enter your API key in the format *x-api-key &lt;api-key&gt;**

func init() {
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,
			pyroscope.NewPyroscopeService,
			metrics.New,

			// Cache
			cache.NewInMemoryCache,
			cache.NewCache,

			// Postgres
			postgres.NewDB,
			provideDBClient,

			// Repositories
			repository.NewBillingRecordRepository,
			repository.NewAuditLogRepository,
			repository.NewTenantRepository,

			// Billing provider
			tier.NewCatalogFromConfig,
			provideGateway,
			provideEventVerifier,

			// Outbound notifications
			svix.NewClient,
			provideNotifier,

			// PubSub
			providePubSub,
			provideDeadLetterPublisher,
			pubsubRouter.NewRouter,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewReconciler,
			service.NewReconciliationDispatcher,
			service.NewWebhookService,
			service.NewBillingService,
			service.NewBillingAdminService,
			service.NewSweepService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			pyroscope.RegisterHooks,
			registerMigrations,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideDBClient(db *postgres.DB, sentry *sentry.Service, logger *logger.Logger) postgres.IClient {
	return postgres.NewSentryClient(db, sentry, logger)
}

func provideGateway(cfg *config.Configuration, logger *logger.Logger, sentry *sentry.Service, metrics *metrics.Metrics) billingprovider.Gateway {
	return stripeintegration.NewGateway(cfg, logger, sentry, metrics)
}

func provideEventVerifier(cfg *config.Configuration, logger *logger.Logger) billingprovider.EventVerifier {
	return stripeintegration.NewWebhookVerifier(cfg, logger)
}

func provideNotifier(client *svix.Client) service.TierNotifier {
	return client
}

func providePubSub(cfg *config.Configuration, logger *logger.Logger) (pubsub.PubSub, error) {
	switch cfg.Reconciliation.PubSub {
	case types.KafkaPubSub:
		return kafka.NewPubSub(cfg, logger)
	default:
		return memory.NewPubSub(logger), nil
	}
}

func provideDeadLetterPublisher(ps pubsub.PubSub) message.Publisher {
	return ps
}

func provideHandlers(
	logger *logger.Logger,
	metrics *metrics.Metrics,
	db postgres.IClient,
	billingService service.BillingService,
	billingAdminService service.BillingAdminService,
	webhookService service.WebhookService,
	sweepService service.SweepService,
) api.Handlers {
	return api.Handlers{
		Health:    v1.NewHealthHandler(db, logger),
		Billing:   v1.NewBillingHandler(billingService, logger),
		Webhook:   v1.NewWebhookHandler(webhookService, metrics, logger),
		Admin:     v1.NewAdminHandler(billingAdminService, billingService, logger),
		CronSweep: cron.NewSweepHandler(sweepService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger, metrics *metrics.Metrics) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger, metrics)
}

// registerMigrations applies pending schema migrations before anything
// else starts, when auto_migrate is set.
func registerMigrations(lc fx.Lifecycle, cfg *config.Configuration, db *postgres.DB, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.Postgres.AutoMigrate {
				return nil
			}
			log.Info("running database migrations")
			_, err := db.Migrate(ctx)
			return err
		},
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	router *pubsubRouter.Router,
	dispatcher service.ReconciliationDispatcher,
	sweepService service.SweepService,
	ps pubsub.PubSub,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	// an in-process transport has no consumer anywhere else
	inProcessConsumer := cfg.Reconciliation.Async && cfg.Reconciliation.PubSub != types.KafkaPubSub

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startMessageRouter(lc, router, dispatcher, ps, log)
		if cfg.Sweep.Enabled {
			startSweeper(lc, sweepService, log)
		}
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
		if inProcessConsumer {
			startMessageRouter(lc, router, dispatcher, ps, log)
		}
	case types.ModeConsumer:
		if cfg.Reconciliation.PubSub != types.KafkaPubSub {
			log.Fatal("Kafka pubsub required for consumer mode")
		}
		startMessageRouter(lc, router, dispatcher, ps, log)
	case types.ModeSweeper:
		startSweeper(lc, sweepService, log)
	case types.ModeAWSLambdaAPI:
		startAWSLambdaAPI(r)
	case types.ModeAWSLambdaSweeper:
		startAWSLambdaSweeper(sweepService, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	dispatcher service.ReconciliationDispatcher,
	ps pubsub.PubSub,
	logger *logger.Logger,
) {
	// Register handlers before starting the router
	dispatcher.RegisterHandler(router)

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting message router")
			go func() {
				if err := router.Run(ctx); err != nil {
					logger.Errorw("message router failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			logger.Info("stopping message router")
			cancel()
			if err := router.Close(); err != nil {
				return err
			}
			return ps.Close()
		},
	})
}

func startSweeper(lc fx.Lifecycle, sweepService service.SweepService, log *logger.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting billing sweeper")
			go func() {
				defer close(done)
				if err := sweepService.Run(ctx); err != nil {
					log.Errorw("billing sweeper stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info("stopping billing sweeper")
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func startAWSLambdaAPI(r *gin.Engine) {
	ginLambda := ginadapter.New(r)
	lambda.Start(ginLambda.ProxyWithContext)
}

// startAWSLambdaSweeper runs one sweep per EventBridge schedule invocation
func startAWSLambdaSweeper(sweepService service.SweepService, log *logger.Logger) {
	handler := func(ctx context.Context, event lambdaEvents.CloudWatchEvent) error {
		log.Infow("scheduled sweep invoked", "event_id", event.ID, "time", event.Time)

		resp, err := sweepService.Sweep(ctx)
		if err != nil {
			log.Errorw("scheduled sweep failed", "error", err)
			return err
		}

		log.Infow("scheduled sweep completed",
			"scanned", resp.Scanned,
			"changed", resp.Changed,
			"failed", resp.Failed,
		)
		return nil
	}

	lambda.Start(handler)
}
