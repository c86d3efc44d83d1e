package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "rtlab-dashboard/internal/middleware"
)

// RouterConfig holds all dependencies for routing.
type RouterConfig struct {
	Gate          *custommiddleware.AuthGate
	AuthHandler   *AuthHandler
	ProxyHandler  *ProxyHandler
	EventsHandler *EventsHandler
	WebHandler    *WebHandler
}

// SetupRoutes configures middleware and all HTTP routes.
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	e.Use(echomw.LoggerWithConfig(echomw.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Long-lived streams and scrape endpoints would drown the log.
			path := c.Request().URL.Path
			return path == "/api/events" || path == "/health" || path == "/metrics"
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Secure())
	e.Use(config.Gate.Middleware)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":    "healthy",
			"service":   "rtlab-dashboard",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Pages and assets
	e.GET("/", config.WebHandler.Index)
	e.GET("/login", config.WebHandler.LoginPage)
	e.GET("/dashboard", config.WebHandler.DashboardPage)
	e.StaticFS("/static", StaticFS())

	// API
	api := e.Group("/api")
	api.POST("/auth/login", config.AuthHandler.Login)
	api.POST("/auth/logout", config.AuthHandler.Logout)
	api.GET("/auth/me", config.AuthHandler.Me)
	api.GET("/events", config.EventsHandler.Stream)

	// Everything else under /api is the generic backend surface.
	api.Any("/*", config.ProxyHandler.Handle)
}
