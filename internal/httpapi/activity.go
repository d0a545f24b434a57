package httpapi

import (
	"net/http"

	"property-registry/internal/activity"

	"github.com/gin-gonic/gin"
)

// --- Activity log ---

type activityQuery struct {
	activity.Filter
	Page     int `form:"page"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ListActivity serves one filtered page of the log, newest first.
// Out-of-range pages are clamped rather than rejected.
func (h Handlers) ListActivity(c *gin.Context) {
	var q activityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	page, err := h.Activity.QueryLog(c.Request.Context(), q.Filter, q.Page, q.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h Handlers) ActivityStats(c *gin.Context) {
	st, err := h.Activity.ComputeStatistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type recentQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (h Handlers) RecentActivity(c *gin.Context) {
	var q recentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	entries, err := h.Activity.Recent(c.Request.Context(), q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (h Handlers) Dashboard(c *gin.Context) {
	d, err := h.Registry.Dashboard(c.Request.Context(), activity.DefaultRecent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
