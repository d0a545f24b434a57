package httpapi

import (
	"errors"
	"net/http"

	"property-registry/internal/activity"
	"property-registry/internal/auth"
	"property-registry/internal/registry"
	"property-registry/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Registry *registry.Service
	Activity *activity.Tracker
}

// warningActivityNotRecorded is attached to a successful mutation response
// when the entity was saved but its activity entry could not be stored.
const warningActivityNotRecorded = "saved, but the change could not be recorded in the activity log"

// actor returns the verified caller. Mutations are refused without one.
func actor(c *gin.Context) (string, bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return "", false
	}
	return uid, true
}

// respondMutation writes a mutation result. A log-write failure is not a
// request failure: the entity exists, so the success status is kept and a
// warning is added.
func respondMutation(c *gin.Context, status int, data any, err error) {
	if err != nil && !errors.Is(err, registry.ErrActivityNotRecorded) {
		respondError(c, err)
		return
	}
	body := gin.H{"data": data}
	if err != nil {
		logger.FromGin(c).Warn("mutation applied without activity entry", "err", err)
		body["warning"] = warningActivityNotRecorded
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registry.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, registry.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, registry.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "conflict"})
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	logger.FromGin(c).Debug("request rejected", "err", err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
