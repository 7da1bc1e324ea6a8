package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"profitpool/internal/allocation"
	"profitpool/internal/handlers/business"
	"profitpool/internal/models"
)

// CreateContributorRequest represents the request payload for creating a contributor
type CreateContributorRequest struct {
	Name             string          `json:"name" binding:"required"`
	Phone            string          `json:"phone"`
	Email            string          `json:"email"`
	CapitalCommitted decimal.Decimal `json:"capital_committed"`
	ActivationDate   *models.Date    `json:"activation_date"`
}

type UpdateActivationDateRequest struct {
	ActivationDate models.Date `json:"activation_date"`
}

// ListContributors returns every contributor with its current balance
func (h *API) ListContributors(c *gin.Context) {
	items, err := h.store.ListContributors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// GetContributor returns a specific contributor by ID
func (h *API) GetContributor(c *gin.Context) {
	item, err := h.store.GetContributor(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// CreateContributor adds a contributor and books its committed capital
func (h *API) CreateContributor(c *gin.Context) {
	var req CreateContributorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.funds.AddContributor(c.Request.Context(), business.NewContributor{
		Name:             req.Name,
		Phone:            req.Phone,
		Email:            req.Email,
		CapitalCommitted: req.CapitalCommitted,
		ActivationDate:   req.ActivationDate,
	})
	if err != nil && item == nil {
		respondError(c, err)
		return
	}
	if err != nil {
		// stored, but the recompute failed
		c.JSON(http.StatusAccepted, gin.H{"data": item, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, item)
}

// DeleteContributor removes a contributor with its ledger and allocations
func (h *API) DeleteContributor(c *gin.Context) {
	if err := h.funds.RemoveContributor(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contributor deleted successfully"})
}

// UpdateActivationDate moves the activation date of a contributor
func (h *API) UpdateActivationDate(c *gin.Context) {
	var req UpdateActivationDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ActivationDate.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "activation_date is required"})
		return
	}
	if err := h.funds.UpdateActivationDate(c.Request.Context(), c.Param("id"), req.ActivationDate); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Activation date updated successfully"})
}

// ListAuditLogs returns the change history of a contributor, newest first
func (h *API) ListAuditLogs(c *gin.Context) {
	items, err := h.store.ListAuditLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// GetBalance returns the balance a contributor brings into the given day
func (h *API) GetBalance(c *gin.Context) {
	date := h.funds.Today()
	if s := c.Query("date"); s != "" {
		d, err := models.ParseDate(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
			return
		}
		date = d
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.store.GetContributor(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	ledger, err := h.store.GetCapitalLedger(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	history, err := h.store.GetHistoricalAllocations(ctx, id, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"contributor_id": id,
		"date":           date,
		"balance":        models.RoundMoney(allocation.BalanceAtDate(id, date, ledger, history, nil)),
	})
}
