package router

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/logger"
)

func loggerAdapter(log *logger.Logger) watermill.LoggerAdapter {
	return logger.NewWatermillAdapter(log)
}

// shouldRetry separates transient failures from ones a redelivery cannot
// fix. A tenant that does not exist will not exist on the next attempt.
func shouldRetry(log *logger.Logger, err error) bool {
	switch {
	case ierr.IsProviderUnavailable(err),
		ierr.IsVersionConflict(err),
		ierr.IsDatabase(err):
		log.Debugw("retrying transient error", "error", err)
		return true
	case errors.Is(err, context.Canceled):
		return false
	case ierr.IsValidation(err),
		ierr.IsNotFound(err),
		ierr.IsTenantNotFound(err),
		ierr.IsPermissionDenied(err),
		ierr.IsInvalidSignature(err):
		log.Debugw("non-retryable error", "error", err)
		return false
	}

	return true
}
