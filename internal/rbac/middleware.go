package rbac

import (
	"net/http"

	"property-registry/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole admits callers whose role is in allowed. It must run after
// auth.RequireAccessToken. A missing identity is 401; a known identity with
// the wrong or an unrecognised role is 403.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	permitted := make(map[string]bool, len(allowed))
	for _, r := range allowed {
		// Unknown role names in allowed are ignored.
		permitted[r] = IsKnownRole(r)
	}

	return func(c *gin.Context) {
		id, err := auth.IdentityFrom(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
			return
		}
		if id.Role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !permitted[id.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
