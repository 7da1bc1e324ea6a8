package routes

import (
	"github.com/gin-gonic/gin"

	"profitpool/internal/handlers"
)

// SetupContributorRoutes sets up routes for contributors and their capital ledger
func SetupContributorRoutes(r *gin.RouterGroup, api *handlers.API) {
	contributors := r.Group("/contributors")
	{
		contributors.GET("", api.ListContributors)
		contributors.POST("", api.CreateContributor)
		contributors.GET("/:id", api.GetContributor)
		contributors.DELETE("/:id", api.DeleteContributor)
		contributors.PUT("/:id/activation-date", api.UpdateActivationDate)
		contributors.GET("/:id/audit-logs", api.ListAuditLogs)
		contributors.GET("/:id/balance", api.GetBalance)

		contributors.GET("/:id/ledger", api.ListCapitalLedger)
		contributors.POST("/:id/funds", api.BookFund)
		contributors.POST("/:id/pending", api.SavePendingLedger)
		contributors.POST("/:id/pending/confirm", api.ConfirmPendingLedger)
		contributors.DELETE("/:id/pending", api.CancelPendingLedger)
	}
}
