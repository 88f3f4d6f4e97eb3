package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/rentals-marketplace/internal/config"
	"github.com/iliyamo/rentals-marketplace/internal/handler"
	"github.com/iliyamo/rentals-marketplace/internal/middleware"
)

// RegisterSessions registers renter sign-up and the session endpoints.
// Login is rate limited per client.
func RegisterSessions(e *echo.Echo, h *handler.RenterHandler, rl config.RateLimitConfig, rdb *redis.Client) {
	e.POST("/v1/renters", h.Register)

	g := e.Group("/v1/sessions")
	g.POST("", h.Login, middleware.RateLimit(rl, rdb))
	g.DELETE("", h.Logout, middleware.RequireRenter())
	g.GET("/current", h.Current)
}
