package middleware

import (
	"net/http"
	"strings"

	"github.com/flexprice/tiersync/internal/auth"
	"github.com/flexprice/tiersync/internal/config"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/gin-gonic/gin"
)

// AuthenticateMiddleware authenticates requests based on either:
// 1. API key in the x-api-key header (or configured header name)
// 2. JWT token in the Authorization header as a Bearer token
// It sets the user ID, tenant ID and operator flag in the request context
func AuthenticateMiddleware(cfg *config.Configuration, logger *logger.Logger) gin.HandlerFunc {
	tokens := auth.NewTokenValidator(cfg)

	return func(c *gin.Context) {
		apiKeyHeader := c.GetHeader(cfg.Auth.APIKey.Header)
		if apiKeyHeader != "" {
			claims, valid := auth.ValidateAPIKey(cfg, apiKeyHeader)
			if !valid {
				logger.Debugw("invalid api key")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
				c.Abort()
				return
			}
			setClaims(c, claims)
			c.Next()
			return
		}

		authHeader := c.GetHeader(types.HeaderAuthorization)
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			logger.Debugw("failed to validate token", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	ctx := c.Request.Context()
	ctx = types.SetUserID(ctx, claims.UserID)
	ctx = types.SetTenantID(ctx, claims.TenantID)
	ctx = types.SetOperator(ctx, claims.Operator)
	c.Request = c.Request.WithContext(ctx)
}

// RequireOperator rejects callers without operator rights
func RequireOperator(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !types.IsOperator(c.Request.Context()) {
			logger.Infow("operator access denied",
				"user_id", types.GetUserID(c.Request.Context()),
				"tenant_id", types.GetTenantID(c.Request.Context()),
				"path", c.Request.URL.Path,
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Operator access is required",
			})
			return
		}
		c.Next()
	}
}
