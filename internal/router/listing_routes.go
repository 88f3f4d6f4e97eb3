package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/rentals-marketplace/internal/config"
	"github.com/iliyamo/rentals-marketplace/internal/handler"
	"github.com/iliyamo/rentals-marketplace/internal/middleware"
)

// RegisterListings registers the inventory and request routes.  Browsing
// by category and checkout are anonymous; everything else needs a renter
// and the handlers enforce ownership.
func RegisterListings(e *echo.Echo, h *handler.ListingHandler, cfg config.Config, rdb *redis.Client) {
	renter := middleware.RequireRenter()

	// GET /v1/listings serves both the public browse (?category=) and the
	// caller's own listings; the handler picks based on the query.
	e.GET("/v1/listings", h.List, middleware.ResponseCache(cfg.Cache, rdb))
	e.POST("/v1/listings/:id/requests", h.Checkout, middleware.RateLimit(cfg.RateLimit, rdb))

	g := e.Group("/v1")
	g.POST("/listings", h.Create, renter)
	g.GET("/listings/summary", h.Summary, renter)
	g.GET("/listings/:id", h.Get, renter)
	g.PUT("/listings/:id", h.Update, renter)
	g.GET("/listings/:id/requests", h.ListRequests, renter)
	g.POST("/requests/:id/fulfill", h.Fulfill, renter)
	g.POST("/requests/:id/cancel", h.Cancel, renter)
}
