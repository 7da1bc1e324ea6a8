package routes

import (
	"github.com/gin-gonic/gin"

	"profitpool/internal/handlers"
	"profitpool/internal/middleware"
)

// SetupAdminRoutes sets up destructive maintenance routes
func SetupAdminRoutes(r *gin.RouterGroup, api *handlers.API, limit middleware.RateLimiterConfig) {
	admin := r.Group("/admin")
	{
		admin.POST("/factory-reset", middleware.RateLimiterMiddleware(limit), api.FactoryReset)
	}
}
