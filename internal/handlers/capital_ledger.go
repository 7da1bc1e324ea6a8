package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"profitpool/internal/models"
)

// FundRequest represents a capital addition or withdrawal
type FundRequest struct {
	Direction     string          `json:"direction" binding:"required,oneof=add subtract"`
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate models.Date     `json:"effective_date"`
}

type PendingRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate models.Date     `json:"effective_date"`
}

// ListCapitalLedger returns the committed and pending entries of a contributor
func (h *API) ListCapitalLedger(c *gin.Context) {
	items, err := h.store.GetCapitalLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// BookFund adds or withdraws committed capital
func (h *API) BookFund(c *gin.Context) {
	var req FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	var (
		entry *models.CapitalLedgerEntry
		err   error
	)
	if req.Direction == models.DirectionSubtract {
		entry, err = h.funds.SubtractFund(ctx, id, req.Amount, req.EffectiveDate)
	} else {
		entry, err = h.funds.AddFund(ctx, id, req.Amount, req.EffectiveDate)
	}
	if err != nil && entry == nil {
		respondError(c, err)
		return
	}
	if err != nil {
		c.JSON(http.StatusAccepted, gin.H{"data": entry, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// SavePendingLedger records an unconfirmed capital addition
func (h *API) SavePendingLedger(c *gin.Context) {
	var req PendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := h.funds.SavePendingLedger(c.Request.Context(), c.Param("id"), req.Amount, req.EffectiveDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ConfirmPendingLedger commits every pending entry of a contributor
func (h *API) ConfirmPendingLedger(c *gin.Context) {
	entries, err := h.funds.ConfirmPendingLedger(c.Request.Context(), c.Param("id"))
	if err != nil && entries == nil {
		respondError(c, err)
		return
	}
	if err != nil {
		c.JSON(http.StatusAccepted, gin.H{"data": entries, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// CancelPendingLedger drops every pending entry of a contributor
func (h *API) CancelPendingLedger(c *gin.Context) {
	n, err := h.funds.CancelPendingLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": n})
}
