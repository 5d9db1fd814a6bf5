package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/senseivictor/baza-de-date/internal/repository"
)

// respondError maps an error kind onto its HTTP status.  Backend failures
// are logged with their cause and answered with a generic message so that
// driver text never reaches the client.
func respondError(c echo.Context, err error) error {
	var (
		bad      *repository.BadRequestError
		notFound *repository.NotFoundError
		conflict *repository.ConflictError
		conn     *repository.ConnectionError
	)
	switch {
	case errors.As(err, &bad):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": bad.Msg})
	case errors.As(err, &notFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFound.Msg})
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": conflict.Msg})
	case errors.As(err, &conn):
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database unavailable"})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
