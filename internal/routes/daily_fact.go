package routes

import (
	"github.com/gin-gonic/gin"

	"profitpool/internal/handlers"
)

// SetupDailyFactRoutes sets up routes for daily gross totals and charges
func SetupDailyFactRoutes(r *gin.RouterGroup, api *handlers.API) {
	totals := r.Group("/daily-totals")
	{
		totals.GET("", api.ListDailyGrossTotals)
		totals.PUT("", api.UpsertDailyGrossTotals)
	}

	charges := r.Group("/daily-charges")
	{
		charges.GET("", api.ListDailyCharges)
		charges.PUT("/:date", api.UpsertDailyCharge)
	}
}
