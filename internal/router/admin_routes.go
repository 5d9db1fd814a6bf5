package router

import (
	"github.com/labstack/echo/v4"

	"github.com/senseivictor/baza-de-date/internal/handler"
)

// RegisterAdmin registers the /admin surface: order listings, the generic
// CRUD endpoint and the reports.  cache wraps only the report groups, whose
// responses are safe to serve stale for a few seconds.
func RegisterAdmin(e *echo.Echo, o *handler.OrderHandler, crud *handler.CrudHandler, s *handler.StatsHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/admin")

	// ---- Orders ----
	g.GET("/latest-order", o.LatestOrder)
	g.GET("/completed-orders", o.CompletedOrders)
	g.GET("/pending-orders", o.PendingOrders)
	g.GET("/orders", o.OrdersByStatus)
	g.GET("/orders-last-week", s.OrdersPerDay)

	// ---- Generic CRUD ----
	g.POST("/crud/:table/:action", crud.Execute)

	// ---- Reports ----
	stats := g.Group("/stats", cache)
	stats.GET("/order-status", s.OrderStatus)
	stats.GET("/new-users-last-week", s.NewUsersPerDay)
	stats.GET("/products-popularity", s.ProductPopularity)
	stats.GET("/top-users", s.TopUsers)
	stats.GET("/revenue-by-product", s.RevenueByProduct)
	stats.GET("/product-tiers", s.ProductTiers)

	// ---- Warehouse ----
	wh := g.Group("/warehouse", cache)
	wh.GET("/revenue-by-product", s.WarehouseRevenue)
	wh.GET("/top-regions", s.TopRegions)
	wh.GET("/sales-timeline", s.SalesTimeline)
	wh.GET("/latest-order-details", s.LatestOrderDetails)
	wh.GET("/top-user-history", s.TopUserHistory)
	wh.GET("/top-metadata", s.TopMetadataFacts)
}
