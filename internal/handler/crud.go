package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/senseivictor/baza-de-date/internal/service"
)

// MaxCrudBody caps the size of a generic CRUD request body.
const MaxCrudBody = 1 << 20

// CrudHandler exposes the generic dispatcher at
// POST /admin/crud/:table/:action.
type CrudHandler struct {
	Dispatcher *service.Dispatcher
}

func NewCrudHandler(d *service.Dispatcher) *CrudHandler {
	if d == nil {
		panic("nil dispatcher passed to NewCrudHandler")
	}
	return &CrudHandler{Dispatcher: d}
}

// Execute reads the raw body and hands it to the dispatcher, which owns
// all per-table validation.
func (h *CrudHandler) Execute(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxCrudBody+1)) // read one byte past the cap to detect oversize bodies
	if err != nil {
		return badRequest(c, "could not read request body")
	}
	if len(body) > MaxCrudBody {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "request body too large"})
	}
	res, err := h.Dispatcher.Execute(c.Request().Context(), c.Param("table"), c.Param("action"), body)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
