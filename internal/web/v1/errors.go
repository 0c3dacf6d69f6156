package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/duynhne/account-service/internal/core/domain"
)

// writeError maps a logic error onto an HTTP status and a client-safe message.
func writeError(c *gin.Context, logger *zap.Logger, span trace.Span, msg string, err error) {
	span.RecordError(err)

	status, body := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, domain.ErrScreenNotFound):
		status, body = http.StatusNotFound, "Screen not found"
	case errors.Is(err, domain.ErrFederatedDisabled):
		status, body = http.StatusNotFound, "Federated sign-in is not configured"
	case errors.Is(err, domain.ErrUserNotFound):
		status, body = http.StatusNotFound, "User not found"
	case errors.Is(err, domain.ErrUserExists):
		status, body = http.StatusConflict, "User already exists"
	case errors.Is(err, domain.ErrInvalidEmail):
		status, body = http.StatusBadRequest, "Invalid email address"
	case errors.Is(err, domain.ErrEmptyPassword):
		status, body = http.StatusBadRequest, "Password must not be empty"
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrInvalidCredentials):
		status, body = http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, domain.ErrUnauthorized):
		status, body = http.StatusForbidden, "Unauthorized access"
	}

	if status >= http.StatusInternalServerError {
		logger.Error(msg, zap.Error(err))
		c.JSON(status, gin.H{"error": body, "message": domain.MessageGenericError})
		return
	}
	logger.Warn(msg, zap.Error(err))
	c.JSON(status, gin.H{"error": body})
}
