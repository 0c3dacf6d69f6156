package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/duynhne/account-service/internal/core/domain"
	"github.com/duynhne/account-service/middleware"
)

// AccountAPI is the part of the account service exposed outside screen sessions.
type AccountAPI interface {
	SignUp(ctx context.Context, email, password string) (domain.Session, error)
	ResetPassword(ctx context.Context, token, password string) error
}

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accounts AccountAPI
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts AccountAPI) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// SignUp handles POST /api/v1/accounts
func (h *AccountHandler) SignUp(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()
	zapLogger := middleware.GetLoggerFromGinContext(c)

	var req domain.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		zapLogger.Warn("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": sanitizeValidationError(err)})
		return
	}
	span.SetAttributes(attribute.Bool("request.valid", true))

	session, err := h.accounts.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		writeError(c, zapLogger, span, "Failed to sign up", err)
		return
	}

	zapLogger.Info("Account signed up", zap.String("user_id", session.UserID))
	c.JSON(http.StatusCreated, session)
}

// ResetPassword handles POST /api/v1/accounts/password/reset
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()
	zapLogger := middleware.GetLoggerFromGinContext(c)

	var req domain.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": sanitizeValidationError(err)})
		return
	}

	if err := h.accounts.ResetPassword(ctx, req.Token, req.Password); err != nil {
		writeError(c, zapLogger, span, "Failed to reset password", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// startRequestSpan opens the web-layer span for the current request.
func startRequestSpan(c *gin.Context) (context.Context, trace.Span) {
	return middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.FullPath()),
	))
}
