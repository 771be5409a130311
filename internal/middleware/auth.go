// Package middleware provides Gin HTTP middleware for authentication, organization scope
// checks, rate limiting, request IDs, metrics, and security headers.
//
// Ordering is set in internal/api/router.go:
//
//	RequestID → Logger → Metrics → Security → Auth → RateLimit → Organization → OrgScope → Handler
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trailkeeper/trailkeeper/internal/auth"
	"github.com/trailkeeper/trailkeeper/internal/db/models"
	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
)

// Context keys set by AuthMiddleware
const (
	ContextKeyUser       = "user"
	ContextKeyUserID     = "user_id"
	ContextKeyAPIKey     = "api_key"
	ContextKeyAPIKeyID   = "api_key_id"
	ContextKeyAPIToken   = "api_token"
	ContextKeyScopes     = "scopes"
	ContextKeyAuthMethod = "auth_method"
)

// AuthMiddleware authenticates a bearer credential. It tries a session JWT, then an
// organization API key, then an installation API token.
func AuthMiddleware(userRepo *repositories.UserRepository, apiKeyRepo *repositories.APIKeyRepository, appRepo *repositories.SentryAppRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Authentication credentials were not provided.",
			})
			return
		}

		ctx := c.Request.Context()

		if claims, err := auth.ValidateJWT(token); err == nil {
			user, err := userRepo.GetUserByID(ctx, claims.UserID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load user"})
				return
			}
			if user == nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
				return
			}
			c.Set(ContextKeyUser, user)
			c.Set(ContextKeyUserID, user.ID)
			c.Set(ContextKeyAuthMethod, "jwt")
			c.Next()
			return
		}

		// The display prefix narrows the bcrypt comparisons to a handful of rows.
		apiKey, err := authenticateAPIKey(ctx, token, apiKeyRepo)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Authentication failed"})
			return
		}
		if apiKey != nil {
			c.Set(ContextKeyAPIKey, apiKey)
			c.Set(ContextKeyAPIKeyID, apiKey.ID)
			c.Set(ContextKeyScopes, apiKey.Scopes)
			c.Set(ContextKeyAuthMethod, "api_key")
			c.Next()
			return
		}

		apiToken, err := appRepo.GetAPIToken(ctx, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Authentication failed"})
			return
		}
		if apiToken != nil {
			if apiToken.IsExpired() {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Token expired"})
				return
			}
			c.Set(ContextKeyAPIToken, apiToken)
			c.Set(ContextKeyAuthMethod, "api_token")
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
	}
}

// authenticateAPIKey looks up candidate keys by display prefix and verifies the bcrypt hash
func authenticateAPIKey(ctx context.Context, providedKey string, apiKeyRepo *repositories.APIKeyRepository) (*models.APIKey, error) {
	keys, err := apiKeyRepo.GetAPIKeysByPrefix(ctx, auth.DisplayPrefix(providedKey))
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if auth.ValidateAPIKey(providedKey, key.KeyHash) {
			return key, nil
		}
	}
	return nil, nil
}

// UserFromContext returns the session user set by AuthMiddleware, if any
func UserFromContext(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextKeyUser); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// APIKeyFromContext returns the organization API key set by AuthMiddleware, if any
func APIKeyFromContext(c *gin.Context) *models.APIKey {
	if v, ok := c.Get(ContextKeyAPIKey); ok {
		if key, ok := v.(*models.APIKey); ok {
			return key
		}
	}
	return nil
}

// APITokenFromContext returns the installation token set by AuthMiddleware, if any
func APITokenFromContext(c *gin.Context) *models.APIToken {
	if v, ok := c.Get(ContextKeyAPIToken); ok {
		if token, ok := v.(*models.APIToken); ok {
			return token
		}
	}
	return nil
}
