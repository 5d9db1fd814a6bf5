package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/senseivictor/baza-de-date/internal/repository"
)

func TestRespondErrorStatus(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:3306: connection refused user=root")
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"bad request", repository.BadRequest("price must not be negative"), http.StatusBadRequest, "price must not be negative"},
		{"not found", repository.NotFound("no orders yet"), http.StatusNotFound, "no orders yet"},
		{"conflict", &repository.ConflictError{Msg: "duplicate", Err: cause}, http.StatusConflict, "duplicate"},
		{"connection", fmt.Errorf("list: %w", &repository.ConnectionError{Err: cause}), http.StatusServiceUnavailable, "database unavailable"},
		{"query", &repository.QueryError{Code: 1064, Msg: "syntax", Err: cause}, http.StatusInternalServerError, "internal error"},
		{"plain", cause, http.StatusInternalServerError, "internal error"},
	}
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			assert.NoError(t, respondError(c, tc.err))
			assert.Equal(t, tc.code, rec.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tc.msg), rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "10.0.0.5")
		})
	}
}
