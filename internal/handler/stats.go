package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/senseivictor/baza-de-date/internal/repository"
	"github.com/senseivictor/baza-de-date/internal/service"
)

// StatsHandler serves the aggregate reports under /admin/stats and
// /admin/warehouse.  Every report accepts an optional start/end pair of
// unix seconds.
type StatsHandler struct {
	Reports   *service.ReportService
	Warehouse *service.WarehouseReports
}

func NewStatsHandler(reports *service.ReportService, warehouse *service.WarehouseReports) *StatsHandler {
	if reports == nil || warehouse == nil {
		panic("nil service passed to NewStatsHandler")
	}
	return &StatsHandler{Reports: reports, Warehouse: warehouse}
}

// OrdersPerDay handles GET /admin/orders-last-week.
func (h *StatsHandler) OrdersPerDay(c echo.Context) error {
	return h.perDay(c, h.Reports.OrdersPerDay)
}

// NewUsersPerDay handles GET /admin/stats/new-users-last-week.
func (h *StatsHandler) NewUsersPerDay(c echo.Context) error {
	return h.perDay(c, h.Reports.NewUsersPerDay)
}

func (h *StatsHandler) perDay(c echo.Context, report func(context.Context, int, *repository.TimeRange) (service.DailyCounts, error)) error {
	days, err := queryInt(c, "days", 0)
	if err != nil {
		return respondError(c, err)
	}
	rng, err := queryRange(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := report(c.Request().Context(), days, rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// OrderStatus handles GET /admin/stats/order-status.
func (h *StatsHandler) OrderStatus(c echo.Context) error {
	rng, err := queryRange(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Reports.StatusBreakdown(c.Request().Context(), rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ProductPopularity handles GET /admin/stats/products-popularity?top=.
func (h *StatsHandler) ProductPopularity(c echo.Context) error {
	top, rng, err := topAndRange(c, 0)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Reports.ProductPopularity(c.Request().Context(), top, rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// TopUsers handles GET /admin/stats/top-users?top=.
func (h *StatsHandler) TopUsers(c echo.Context) error {
	top, rng, err := topAndRange(c, 0)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Reports.TopUsers(c.Request().Context(), top, rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// RevenueByProduct handles GET /admin/stats/revenue-by-product.
func (h *StatsHandler) RevenueByProduct(c echo.Context) error {
	rng, err := queryRange(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Reports.RevenueByProduct(c.Request().Context(), rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ProductTiers handles GET /admin/stats/product-tiers.
func (h *StatsHandler) ProductTiers(c echo.Context) error {
	rng, err := queryRange(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Reports.ProductTiers(c.Request().Context(), rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// WarehouseRevenue handles GET /admin/warehouse/revenue-by-product.
func (h *StatsHandler) WarehouseRevenue(c echo.Context) error {
	rng, err := queryRange(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Warehouse.RevenueByProduct(c.Request().Context(), rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// TopRegions handles GET /admin/warehouse/top-regions?top=.
func (h *StatsHandler) TopRegions(c echo.Context) error {
	top, rng, err := topAndRange(c, service.DefaultTopRegions)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Warehouse.TopRegions(c.Request().Context(), top, rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// SalesTimeline handles GET /admin/warehouse/sales-timeline.
func (h *StatsHandler) SalesTimeline(c echo.Context) error {
	rng, err := queryRange(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Warehouse.SalesTimeline(c.Request().Context(), rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// LatestOrderDetails handles GET /admin/warehouse/latest-order-details.
func (h *StatsHandler) LatestOrderDetails(c echo.Context) error {
	rng, err := queryRange(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Warehouse.LatestOrderDetails(c.Request().Context(), rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// TopUserHistory handles GET /admin/warehouse/top-user-history.
func (h *StatsHandler) TopUserHistory(c echo.Context) error {
	rng, err := queryRange(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Warehouse.TopUserHistory(c.Request().Context(), rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// TopMetadataFacts handles GET /admin/warehouse/top-metadata?top=.
func (h *StatsHandler) TopMetadataFacts(c echo.Context) error {
	top, rng, err := topAndRange(c, service.DefaultTopFacts)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Warehouse.TopMetadataFacts(c.Request().Context(), top, rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
