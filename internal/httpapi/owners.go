package httpapi

import (
	"net/http"

	"property-registry/internal/registry"

	"github.com/gin-gonic/gin"
)

// --- Owners ---

func (h Handlers) ListOwners(c *gin.Context) {
	owners, err := h.Registry.ListOwners(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": owners})
}

func (h Handlers) GetOwner(c *gin.Context) {
	o, err := h.Registry.GetOwner(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": o})
}

func (h Handlers) CreateOwner(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	var req registry.OwnerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	o, err := h.Registry.CreateOwner(c.Request.Context(), uid, req)
	respondMutation(c, http.StatusCreated, o, err)
}

func (h Handlers) UpdateOwner(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	var req registry.OwnerPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	o, err := h.Registry.UpdateOwner(c.Request.Context(), uid, c.Param("id"), req)
	respondMutation(c, http.StatusOK, o, err)
}

// DeleteOwner also removes the owner's properties.
func (h Handlers) DeleteOwner(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	id := c.Param("id")
	err := h.Registry.DeleteOwner(c.Request.Context(), uid, id)
	respondMutation(c, http.StatusOK, gin.H{"id": id, "deleted": true}, err)
}
