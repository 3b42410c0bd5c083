package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/identity"
	"vetcare-server/internal/models"
	"vetcare-server/internal/utils"
)

const principalKey = "principal"

// AuthMiddleware authenticates the bearer token and stores the resolved
// principal in the context.
func AuthMiddleware(resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.AbortWithError(c, apperr.New(apperr.KindUnauthenticated, apperr.CodeUnauthenticated, "Authorization header required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.AbortWithError(c, apperr.New(apperr.KindUnauthenticated, apperr.CodeUnauthenticated, "Invalid authorization header format"))
			return
		}

		principal, err := resolver.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}

		c.Set(principalKey, principal)
		c.Set("userID", principal.UserID)
		c.Set("userRole", principal.Role())
		c.Next()
	}
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			utils.AbortWithError(c, apperr.ErrUnauthenticated)
			return
		}
		for _, allowed := range allowedRoles {
			if principal.Role() == allowed {
				c.Next()
				return
			}
		}
		utils.AbortWithError(c, apperr.New(apperr.KindForbidden, apperr.CodeUnauthorized, "You do not have permission to access this resource."))
	}
}

// GetPrincipal returns the authenticated principal.
func GetPrincipal(c *gin.Context) (*identity.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(*identity.Principal)
	return p, ok
}

// Helper function to get user ID from context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		return "", false
	}
	idStr, ok := userID.(string)
	return idStr, ok
}

// Helper function to get user role from context
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	userRole, exists := c.Get("userRole")
	if !exists {
		return "", false
	}
	role, ok := userRole.(models.Role)
	return role, ok
}
