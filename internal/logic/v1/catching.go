package v1

import (
	"context"

	"go.uber.org/zap"

	"github.com/duynhne/account-service/internal/core/domain"
	"github.com/duynhne/account-service/middleware"
)

// Workflow outcome labels.
const (
	outcomeOK        = "ok"
	outcomeRejected  = "rejected"
	outcomeCancelled = "cancelled"
	outcomeError     = "error"
	outcomeShared    = "shared"
)

// catchError is the screen-wide handler for backend failures: it logs the
// error and shows the generic notification. Failures are never retried.
func catchError(ctx context.Context, logger *zap.Logger, effect *Effect, action string, err error) {
	middleware.RecordError(ctx, err)
	middleware.RecordWorkflowOutcome(action, outcomeError)
	logger.Error("Screen action failed", zap.String("action", action), zap.Error(err))
	effect.ShowMessage(domain.MessageGenericError)
}
