package routes

import (
	"github.com/gin-gonic/gin"

	"profitpool/internal/handlers"
	"profitpool/internal/middleware"
)

type Options struct {
	AllowedOrigins []string
	Recompute      middleware.RateLimiterConfig
}

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(api *handlers.API, opts Options) *gin.Engine {
	r := gin.Default()

	// Add health check endpoint
	r.Any("/health", func(c *gin.Context) {
		c.String(200, "ok")
	})

	r.Use(corsMiddleware(opts.AllowedOrigins))

	v1 := r.Group("/api/v1")
	SetupContributorRoutes(v1, api)
	SetupDailyFactRoutes(v1, api)
	SetupAllocationRoutes(v1, api, opts.Recompute)
	SetupAdminRoutes(v1, api, opts.Recompute)

	return r
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o != "" {
			allowed[o] = true
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		// Handle preflight requests
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
