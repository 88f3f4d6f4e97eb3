package router

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/rentals-marketplace/internal/config"
	"github.com/iliyamo/rentals-marketplace/internal/handler"
	"github.com/iliyamo/rentals-marketplace/internal/logger"
	"github.com/iliyamo/rentals-marketplace/internal/middleware"
)

// Auth is everything the HTTP surface needs from the auth service.
type Auth interface {
	handler.Accounts
	middleware.SessionResolver
}

// Deps are the collaborators wired into the routes.  Redis may be nil,
// which disables the response cache and rate limiting.
type Deps struct {
	Config    config.Config
	Redis     *redis.Client
	Auth      Auth
	Inventory handler.Inventory
	Customers handler.CustomerRecords
	ImagesDir string
}

// New builds the echo instance with the global middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(requestLogger(logger.WithComponent("http"))))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{d.Config.AllowedOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, "Idempotency-Key"},
		AllowCredentials: true,
	}))
	// Room for the largest multipart body: three images plus form fields.
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dM", 3*d.Config.Upload.MaxUploadMB+1)))

	cookie := middleware.Cookie{Name: d.Config.Session.CookieName, Secure: d.Config.Session.Secure}
	e.Use(middleware.Session(d.Auth, cookie))

	RegisterRoutes(e, d.ImagesDir)
	RegisterSessions(e, handler.NewRenterHandler(d.Auth, cookie), d.Config.RateLimit, d.Redis)
	RegisterListings(e, handler.NewListingHandler(d.Inventory), d.Config, d.Redis)
	RegisterCustomers(e, handler.NewCustomerHandler(d.Customers))
	return e
}

// RegisterRoutes registers the unauthenticated infrastructure routes: the
// health check and the listing images.  Identity documents are never
// served.
func RegisterRoutes(e *echo.Echo, imagesDir string) {
	e.GET("/healthz", handler.Health)
	if imagesDir != "" {
		e.Static("/uploads/images", imagesDir)
	}
}

func requestLogger(log *slog.Logger) echomw.RequestLoggerConfig {
	return echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				log.ErrorContext(c.Request().Context(), "request", append(attrs, "error", v.Error)...)
				return nil
			}
			log.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	}
}
