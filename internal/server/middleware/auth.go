package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ifuryst/agencylens/internal/security"
)

const (
	UserIDKey = "user_id"
	RolesKey  = "roles"
	ClaimsKey = "claims"
)

// TokenValidator is satisfied by *security.JWT
type TokenValidator interface {
	ValidateToken(token string) (*security.UserClaims, error)
}

// Auth validates the bearer token and stores the caller on the context
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := validator.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is invalid or expired"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RolesKey, claims.Roles)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// CheckRoles requires at least one of the given global roles
func CheckRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !HasAnyRole(c, requiredRoles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

func HasAnyRole(c *gin.Context, required ...string) bool {
	roles := c.GetStringSlice(RolesKey)
	for _, want := range required {
		for _, have := range roles {
			if want == have {
				return true
			}
		}
	}
	return false
}
