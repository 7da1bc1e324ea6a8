package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"profitpool/internal/allocation"
	"profitpool/internal/models"
)

type RecomputeRequest struct {
	StartDate models.Date `json:"start_date"`
	EndDate   models.Date `json:"end_date"`
	Reason    string      `json:"reason"`
}

// ListAllocations returns the daily allocations of a date range, optionally
// for a single contributor
func (h *API) ListAllocations(c *gin.Context) {
	r, ok := h.queryRange(c)
	if !ok {
		return
	}
	items, err := h.store.ListAllocations(c.Request.Context(), c.Query("contributor_id"), r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": r, "data": items, "totals": allocation.Sums(items)})
}

// ListOwnerAggregates returns the owner's daily take over a date range
func (h *API) ListOwnerAggregates(c *gin.Context) {
	r, ok := h.queryRange(c)
	if !ok {
		return
	}
	items, err := h.store.ListOwnerAggregates(c.Request.Context(), r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": r, "data": items})
}

// Recompute reruns the allocation of a range. It answers 202 when the work
// was queued for the worker.
func (h *API) Recompute(c *gin.Context) {
	var req RecomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.StartDate.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date is required"})
		return
	}
	if req.EndDate.IsZero() {
		req.EndDate = h.funds.Today()
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}

	res, err := h.funds.Recompute(c.Request.Context(), req.StartDate, req.EndDate, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusAccepted, gin.H{"message": "Recompute queued", "start_date": req.StartDate, "end_date": req.EndDate})
		return
	}
	if err := h.funds.RefreshBalances(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
