package httpapi

import (
	"net/http"

	"property-registry/internal/registry"

	"github.com/gin-gonic/gin"
)

// --- Properties ---

func (h Handlers) ListProperties(c *gin.Context) {
	var f registry.PropertyFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	props, err := h.Registry.ListProperties(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": props})
}

func (h Handlers) GetProperty(c *gin.Context) {
	p, err := h.Registry.GetProperty(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (h Handlers) CreateProperty(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	var req registry.PropertyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.Registry.CreateProperty(c.Request.Context(), uid, req)
	respondMutation(c, http.StatusCreated, p, err)
}

func (h Handlers) UpdateProperty(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	var req registry.PropertyPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.Registry.UpdateProperty(c.Request.Context(), uid, c.Param("id"), req)
	respondMutation(c, http.StatusOK, p, err)
}

func (h Handlers) DeleteProperty(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	id := c.Param("id")
	err := h.Registry.DeleteProperty(c.Request.Context(), uid, id)
	respondMutation(c, http.StatusOK, gin.H{"id": id, "deleted": true}, err)
}
