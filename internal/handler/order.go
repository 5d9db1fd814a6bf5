package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/senseivictor/baza-de-date/internal/model"
	"github.com/senseivictor/baza-de-date/internal/service"
)

// OrderHandler serves order placement, user registration and the order
// listings.
type OrderHandler struct {
	Orders *service.OrderService
	Users  *service.UserService
}

func NewOrderHandler(orders *service.OrderService, users *service.UserService) *OrderHandler {
	if orders == nil || users == nil {
		panic("nil service passed to NewOrderHandler")
	}
	return &OrderHandler{Orders: orders, Users: users}
}

// ProcessOrder handles POST /process-order.
func (h *OrderHandler) ProcessOrder(c echo.Context) error {
	var in service.PlaceOrderInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	o, err := h.Orders.Place(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":          "success",
		"message":         "order placed",
		"order_public_id": o.OrderPublicID,
	})
}

// GetOrders handles GET /get-orders?userId=.
func (h *OrderHandler) GetOrders(c echo.Context) error {
	id, err := strconv.ParseInt(strings.TrimSpace(c.QueryParam("userId")), 10, 64)
	if err != nil || id <= 0 {
		return badRequest(c, "userId must be a positive integer")
	}
	orders, err := h.Orders.ListForUser(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// RegisterUser handles POST /register-user.  Registering an existing name
// returns the existing id.
func (h *OrderHandler) RegisterUser(c echo.Context) error {
	var in service.RegisterInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	id, created, err := h.Users.Register(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "user_id": id, "created": created})
}

// LatestOrder handles GET /admin/latest-order.
func (h *OrderHandler) LatestOrder(c echo.Context) error {
	o, err := h.Orders.Latest(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// CompletedOrders handles GET /admin/completed-orders.
func (h *OrderHandler) CompletedOrders(c echo.Context) error {
	return h.byStatus(c, model.StatusCompleted)
}

// PendingOrders handles GET /admin/pending-orders.
func (h *OrderHandler) PendingOrders(c echo.Context) error {
	return h.byStatus(c, model.StatusPending)
}

// OrdersByStatus handles GET /admin/orders?status=.
func (h *OrderHandler) OrdersByStatus(c echo.Context) error {
	return h.byStatus(c, c.QueryParam("status"))
}

func (h *OrderHandler) byStatus(c echo.Context, status string) error {
	orders, err := h.Orders.ListByStatus(c.Request().Context(), status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}
