package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/senseivictor/baza-de-date/internal/handler"
)

// RegisterRoutes registers the probes.  /healthz answers while the process
// is up; /readyz also pings the database.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterOrders registers the client-facing order and user endpoints.
func RegisterOrders(e *echo.Echo, o *handler.OrderHandler) {
	e.POST("/process-order", o.ProcessOrder)
	e.GET("/get-orders", o.GetOrders)
	e.POST("/register-user", o.RegisterUser)
}
