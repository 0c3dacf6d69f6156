package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duynhne/account-service/internal/core/domain"
)

// SessionParser validates a bearer session token.
type SessionParser interface {
	Parse(token string) (domain.Principal, error)
}

// AuthMiddleware creates a middleware that validates session tokens.
// It sets "user_id", "email", "auth_method" in the gin context and stores the
// principal in the request context for the logic layer.
// Missing or invalid tokens are rejected with 401.
func AuthMiddleware(tokens SessionParser, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		// Extract token from "Bearer <token>"
		const bearerPrefix = "Bearer "
		if len(authHeader) <= len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}
		token := authHeader[len(bearerPrefix):]

		principal, err := tokens.Parse(token)
		if err != nil {
			if logger != nil {
				logger.Debug("Session validation failed", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("user_id", principal.UserID)
		c.Set("email", principal.Email)
		c.Set("auth_method", principal.AuthMethod)
		c.Request = c.Request.WithContext(domain.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}
