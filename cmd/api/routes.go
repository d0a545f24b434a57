package main

import (
	"net/http"

	"property-registry/internal/auth"
	"property-registry/internal/httpapi"
	"property-registry/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		read := rbac.RequireAnyRole(rbac.Readers...)
		write := rbac.RequireAnyRole(rbac.Writers...)

		v1.GET("/me", read, func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"user_id": uid, "role": role})
		})

		// OWNERS routes
		owners := v1.Group("/owners")
		{
			owners.GET("", read, h.ListOwners)
			owners.GET("/:id", read, h.GetOwner)
			owners.POST("", write, h.CreateOwner)
			owners.PATCH("/:id", write, h.UpdateOwner)
			owners.DELETE("/:id", write, h.DeleteOwner)
		}

		// PROPERTIES routes
		properties := v1.Group("/properties")
		{
			properties.GET("", read, h.ListProperties)
			properties.GET("/:id", read, h.GetProperty)
			properties.POST("", write, h.CreateProperty)
			properties.PATCH("/:id", write, h.UpdateProperty)
			properties.DELETE("/:id", write, h.DeleteProperty)
		}

		// ACTIVITY routes (read-only; entries are only created by mutations)
		act := v1.Group("/activity")
		act.Use(read)
		{
			act.GET("", h.ListActivity)
			act.GET("/stats", h.ActivityStats)
			act.GET("/recent", h.RecentActivity)
		}

		v1.GET("/dashboard", read, h.Dashboard)
	}
}
