package handler

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/senseivictor/baza-de-date/internal/repository"
)

// queryInt reads an optional integer query parameter; def is returned when
// the parameter is absent.
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, repository.BadRequest("%s must be an integer", name)
	}
	return n, nil
}

// queryRange reads the start/end unix-second pair.  Both or neither must be
// given; nil means no range.
func queryRange(c echo.Context) (*repository.TimeRange, error) {
	start := strings.TrimSpace(c.QueryParam("start"))
	end := strings.TrimSpace(c.QueryParam("end"))
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, repository.BadRequest("start and end must be given together")
	}
	s, err := strconv.ParseInt(start, 10, 64)
	if err != nil {
		return nil, repository.BadRequest("start must be a unix timestamp")
	}
	e, err := strconv.ParseInt(end, 10, 64)
	if err != nil {
		return nil, repository.BadRequest("end must be a unix timestamp")
	}
	return &repository.TimeRange{Start: s, End: e}, nil
}

func topAndRange(c echo.Context, def int) (int, *repository.TimeRange, error) {
	top, err := queryInt(c, "top", def)
	if err != nil {
		return 0, nil, err
	}
	rng, err := queryRange(c)
	return top, rng, err
}
