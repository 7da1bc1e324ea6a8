package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"profitpool/internal/models"
)

type GrossTotalItem struct {
	Date       models.Date     `json:"date"`
	GrossTotal decimal.Decimal `json:"gross_total"`
	Source     string          `json:"source"`
}

type UpsertGrossTotalsRequest struct {
	Items []GrossTotalItem `json:"items" binding:"required,min=1,dive"`
}

type UpsertChargeRequest struct {
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Note      *string         `json:"note"`
}

// ListDailyGrossTotals returns the gross totals of a date range
func (h *API) ListDailyGrossTotals(c *gin.Context) {
	r, ok := h.queryRange(c)
	if !ok {
		return
	}
	items, err := h.store.GetDailyGrossTotals(c.Request.Context(), r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": r, "data": items})
}

// UpsertDailyGrossTotals stores a batch of gross totals and recomputes
func (h *API) UpsertDailyGrossTotals(c *gin.Context) {
	var req UpsertGrossTotalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	totals := make([]models.DailyGrossTotal, 0, len(req.Items))
	for _, it := range req.Items {
		totals = append(totals, models.DailyGrossTotal{Date: it.Date, GrossTotal: it.GrossTotal, Source: it.Source})
	}
	if err := h.funds.UpsertDailyGrossTotals(c.Request.Context(), totals); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Daily totals stored successfully", "count": len(totals)})
}

// ListDailyCharges returns the charges of a date range
func (h *API) ListDailyCharges(c *gin.Context) {
	r, ok := h.queryRange(c)
	if !ok {
		return
	}
	items, err := h.store.GetDailyCharges(c.Request.Context(), r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": r, "data": items})
}

// UpsertDailyCharge stores the charge of one day and recomputes
func (h *API) UpsertDailyCharge(c *gin.Context) {
	date, err := models.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
		return
	}
	var req UpsertChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	charge, err := h.funds.UpsertDailyCharge(c.Request.Context(), date, req.TaxAmount, req.Note)
	if err != nil && charge == nil {
		respondError(c, err)
		return
	}
	if err != nil {
		c.JSON(http.StatusAccepted, gin.H{"data": charge, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, charge)
}
