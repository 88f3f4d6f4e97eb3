package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentals-marketplace/internal/handler"
	"github.com/iliyamo/rentals-marketplace/internal/middleware"
)

// RegisterCustomers registers identity submission for logged-in renters.
func RegisterCustomers(e *echo.Echo, h *handler.CustomerHandler) {
	e.POST("/v1/customer-info", h.Submit, middleware.RequireRenter())
}
