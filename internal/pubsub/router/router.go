package router

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/flexprice/tiersync/internal/config"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/sentry"
)

// Router manages the consumer side of asynchronous reconciliation
type Router struct {
	router *message.Router
	logger *logger.Logger
	sentry *sentry.Service
	config *config.ReconciliationConfig
}

// NewRouter creates a message router. Messages that exhaust their retries
// are published to the dead letter topic on dlq.
func NewRouter(
	cfg *config.Configuration,
	logger *logger.Logger,
	sentry *sentry.Service,
	dlq message.Publisher,
) (*Router, error) {
	wlog := loggerAdapter(logger)
	router, err := message.NewRouter(message.RouterConfig{}, wlog)
	if err != nil {
		return nil, err
	}

	poisonQueue, err := middleware.PoisonQueue(dlq, cfg.Reconciliation.DeadLetterTopic)
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(
		poisonQueue,
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:          cfg.Reconciliation.MaxRetries,
			InitialInterval:     cfg.Reconciliation.InitialInterval,
			MaxInterval:         cfg.Reconciliation.MaxInterval,
			Multiplier:          cfg.Reconciliation.Multiplier,
			MaxElapsedTime:      cfg.Reconciliation.MaxElapsedTime,
			RandomizationFactor: 0.5,
			Logger:              wlog,
			OnRetryHook: func(retryNum int, delay time.Duration) {
				logger.Infow("retrying message",
					"retry_number", retryNum,
					"max_retries", cfg.Reconciliation.MaxRetries,
					"delay", delay,
				)
			},
		}.Middleware,
	)

	return &Router{
		router: router,
		logger: logger,
		sentry: sentry,
		config: &cfg.Reconciliation,
	}, nil
}

// AddNoPublishHandler registers a consumer. Errors that retrying cannot fix
// are logged and the message is acked instead of being retried.
func (r *Router) AddNoPublishHandler(
	handlerName string,
	topicName string,
	subscriber message.Subscriber,
	handlerFunc func(msg *message.Message) error,
	middlewares ...message.HandlerMiddleware,
) {
	handler := r.router.AddNoPublisherHandler(
		handlerName,
		topicName,
		subscriber,
		func(msg *message.Message) error {
			err := handlerFunc(msg)
			if err == nil {
				return nil
			}
			if !shouldRetry(r.logger, err) {
				r.logger.Warnw("dropping message after non-retryable error",
					"handler", handlerName,
					"error", err,
					"correlation_id", middleware.MessageCorrelationID(msg),
					"message_uuid", msg.UUID,
				)
				return nil
			}
			r.sentry.CaptureException(err)
			r.logger.Errorw("handler failed",
				"handler", handlerName,
				"error", err,
				"correlation_id", middleware.MessageCorrelationID(msg),
				"message_uuid", msg.UUID,
			)
			return err
		},
	)

	for _, m := range middlewares {
		handler.AddMiddleware(m)
	}
}

// Run blocks until ctx is cancelled or the router is closed
func (r *Router) Run(ctx context.Context) error {
	r.logger.Info("starting router")
	return r.router.Run(ctx)
}

// Running is closed once all handlers are subscribed
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

func (r *Router) Close() error {
	r.logger.Info("closing router")
	return r.router.Close()
}
