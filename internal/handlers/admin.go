package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// resetConfirmation must be sent back verbatim to wipe the data.
const resetConfirmation = "RESET"

type FactoryResetRequest struct {
	Confirm string `json:"confirm" binding:"required"`
}

// FactoryReset deletes everything but the owner
func (h *API) FactoryReset(c *gin.Context) {
	var req FactoryResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Confirm != resetConfirmation {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirm must be " + resetConfirmation})
		return
	}

	if err := h.funds.FactoryReset(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Factory reset complete"})
}
