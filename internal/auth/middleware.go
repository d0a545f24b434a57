package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"property-registry/pkg/logger"

	"github.com/gin-gonic/gin"
)

var errMissingBearer = errors.New("missing bearer token")

// bearerToken extracts the token from an Authorization header. The scheme is
// matched case-insensitively.
func bearerToken(header string) (string, error) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errMissingBearer
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", errMissingBearer
	}
	return tok, nil
}

// RequireAccessToken verifies the access token and puts the caller's Identity
// into the request context. Role checks belong to internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := m.Verify(tok, time.Now())
		if err != nil {
			logger.FromGin(c).Debug("token rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), claims.UserID, claims.Role))
		// read by the request logger
		c.Set("user_id", claims.UserID)
		c.Next()
	}
}
