package routes

import (
	"github.com/gin-gonic/gin"

	"profitpool/internal/handlers"
	"profitpool/internal/middleware"
)

// SetupAllocationRoutes sets up routes for allocation results and manual recomputes
func SetupAllocationRoutes(r *gin.RouterGroup, api *handlers.API, limit middleware.RateLimiterConfig) {
	allocations := r.Group("/allocations")
	{
		allocations.GET("", api.ListAllocations)
		allocations.POST("/recompute", middleware.RateLimiterMiddleware(limit), api.Recompute)
	}

	r.GET("/owner-pnl", api.ListOwnerAggregates)
}
