package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MehdiEmrani/wazo-chatd/internal/auth"
	"github.com/MehdiEmrani/wazo-chatd/internal/repository"
)

// Context keys under which the auth middleware stores the resolved
// identity. Handlers read them through the accessors below instead of
// repeating the strings.
const (
	ContextKeyUserUUID    = "user_uuid"
	ContextKeyTenantUUID  = "tenant_uuid"
	ContextKeyTenantScope = "tenant_scope"
)

// AuthMiddleware validates the bearer token and stores the acting user
// and tenant scope in the gin context. Requests without a valid token
// never reach a handler.
//
// The middleware only resolves identity; it performs no authorization.
// Tenant filtering happens in the repositories, against the scope
// stored here.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := auth.ParseToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextKeyUserUUID, claims.UserUUID)
		c.Set(ContextKeyTenantUUID, claims.TenantUUID)
		c.Set(ContextKeyTenantScope, repository.NewTenantScope(claims.Scope()...))

		c.Next()
	}
}

// GetUserID returns the acting user's uuid stored by AuthMiddleware.
func GetUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ContextKeyUserUUID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// GetTenantID returns the token's home tenant.
func GetTenantID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ContextKeyTenantUUID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// GetTenantScope returns the tenant scope resolved from the token.
// Without a scope in context (misconfigured route), it returns the
// matches-nothing scope, never the bypass.
func GetTenantScope(c *gin.Context) repository.TenantScope {
	if v, ok := c.Get(ContextKeyTenantScope); ok {
		if scope, ok := v.(repository.TenantScope); ok {
			return scope
		}
	}
	return repository.NewTenantScope()
}
