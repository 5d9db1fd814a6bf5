package handler_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/senseivictor/baza-de-date/internal/database"
	"github.com/senseivictor/baza-de-date/internal/handler"
	"github.com/senseivictor/baza-de-date/internal/repository"
	"github.com/senseivictor/baza-de-date/internal/router"
	"github.com/senseivictor/baza-de-date/internal/service"
)

type testApp struct {
	e  *echo.Echo
	db *sql.DB
}

func newApp(t *testing.T, seed bool) *testApp {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	if seed {
		_, err := database.SeedProducts(context.Background(), db, database.SQLite, database.DefaultProducts)
		require.NoError(t, err)
	}
	store := repository.NewStore(db, database.SQLite)

	e := echo.New()
	orders := handler.NewOrderHandler(service.NewOrderService(store, nil), service.NewUserService(store, bcrypt.MinCost))
	stats := handler.NewStatsHandler(service.NewReportService(store, time.UTC), service.NewWarehouseReports(store, time.UTC))
	noCache := func(next echo.HandlerFunc) echo.HandlerFunc { return next }

	router.RegisterRoutes(e, db)
	router.RegisterOrders(e, orders)
	router.RegisterAdmin(e, orders, handler.NewCrudHandler(service.NewDispatcher(store, bcrypt.MinCost)), stats, noCache)
	return &testApp{e: e, db: db}
}

func (a *testApp) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestCrudAddProductOnEmptyTable(t *testing.T) {
	app := newApp(t, false)

	rec := app.do(http.MethodPost, "/admin/crud/products/add", `{"name":"Mug","price":9.99}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "added", body["action"])
	assert.Equal(t, float64(1), body["id"])

	var n int
	require.NoError(t, app.db.QueryRow("SELECT COUNT(*) FROM products WHERE product_id = 1").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestCrudStatusCodes(t *testing.T) {
	app := newApp(t, true)

	cases := []struct {
		name, path, body string
		want             int
	}{
		{"unknown table", "/admin/crud/invoices/add", `{}`, http.StatusNotFound},
		{"unknown action", "/admin/crud/products/upsert", `{}`, http.StatusNotFound},
		{"unknown field", "/admin/crud/products/add", `{"name":"x","price":1,"color":"red"}`, http.StatusBadRequest},
		{"only primary key", "/admin/crud/products/update", `{"product_id":1}`, http.StatusBadRequest},
		{"update missing row", "/admin/crud/products/update", `{"product_id":404,"name":"x"}`, http.StatusNotFound},
		{"duplicate name", "/admin/crud/products/add", `{"name":"Song","price":1}`, http.StatusConflict},
		{"delete missing row", "/admin/crud/users/delete", `{"user_id":9}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			var body map[string]string
			decode(t, rec, &body)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCrudRejectsOversizedBody(t *testing.T) {
	app := newApp(t, false)
	big := `{"name":"` + strings.Repeat("a", handler.MaxCrudBody) + `","price":1}`
	rec := app.do(http.MethodPost, "/admin/crud/products/add", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestProcessOrderAndListing(t *testing.T) {
	app := newApp(t, true)

	rec := app.do(http.MethodPost, "/register-user", `{"name":"ana"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reg struct {
		Status string `json:"status"`
		UserID int64  `json:"user_id"`
	}
	decode(t, rec, &reg)
	assert.Equal(t, "ok", reg.Status)

	again := app.do(http.MethodPost, "/register-user", `{"name":"ana"}`)
	var reg2 struct {
		UserID int64 `json:"user_id"`
	}
	decode(t, again, &reg2)
	assert.Equal(t, reg.UserID, reg2.UserID)

	rec = app.do(http.MethodPost, "/process-order", `{"user_id":1,"products":[1,3]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var placed map[string]string
	decode(t, rec, &placed)
	assert.Equal(t, "success", placed["status"])
	_, err := uuid.Parse(placed["order_public_id"])
	assert.NoError(t, err)

	rec = app.do(http.MethodGet, "/get-orders?userId=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []map[string]any
	decode(t, rec, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, "Caricature, Song", orders[0]["products"])
	assert.Equal(t, "completed", orders[0]["order_status"])

	rec = app.do(http.MethodGet, "/admin/completed-orders", "")
	decode(t, rec, &orders)
	assert.Len(t, orders, 1)
	rec = app.do(http.MethodGet, "/admin/pending-orders", "")
	decode(t, rec, &orders)
	assert.Empty(t, orders)

	rec = app.do(http.MethodGet, "/admin/latest-order", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest map[string]any
	decode(t, rec, &latest)
	assert.Equal(t, placed["order_public_id"], latest["order_public_id"])
}

func TestOrderInputErrors(t *testing.T) {
	app := newApp(t, true)

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/admin/latest-order", "").Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPost, "/process-order", `{"products":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPost, "/process-order", `{"products":[99]}`).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPost, "/process-order", `{"products":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/get-orders", "").Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/get-orders?userId=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/admin/orders?status=", "").Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPost, "/register-user", `{"name":" "}`).Code)
}

func TestReportsEndpoints(t *testing.T) {
	app := newApp(t, true)
	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/process-order", `{"products":[2,2]}`).Code)

	rec := app.do(http.MethodGet, "/admin/orders-last-week", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var daily service.DailyCounts
	decode(t, rec, &daily)
	require.Len(t, daily.Dates, 7)
	require.Len(t, daily.Counts, 7)
	assert.Equal(t, int64(1), daily.Counts[6])

	rec = app.do(http.MethodGet, "/admin/stats/products-popularity?top=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var popular []map[string]any
	decode(t, rec, &popular)
	require.Len(t, popular, 1)
	assert.Equal(t, "Voiceover", popular[0]["name"])
	assert.Equal(t, float64(2), popular[0]["orders"])

	for _, path := range []string{
		"/admin/stats/order-status",
		"/admin/stats/new-users-last-week?days=3",
		"/admin/stats/top-users",
		"/admin/stats/revenue-by-product",
		"/admin/stats/product-tiers",
		"/admin/warehouse/revenue-by-product",
		"/admin/warehouse/top-regions",
		"/admin/warehouse/sales-timeline?start=0&end=2000000000",
		"/admin/warehouse/top-metadata?top=10",
	} {
		rec := app.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path+": "+rec.Body.String())
	}

	for _, path := range []string{
		"/admin/orders-last-week?days=abc",
		"/admin/orders-last-week?days=400",
		"/admin/stats/order-status?start=10&end=5",
		"/admin/stats/order-status?start=10",
		"/admin/stats/top-users?top=x",
		"/admin/warehouse/top-regions?top=-1",
		"/admin/warehouse/top-metadata?top=-1",
		"/admin/warehouse/latest-order-details?start=9&end=1",
	} {
		rec := app.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	// nothing has been loaded into the warehouse yet
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/admin/warehouse/latest-order-details", "").Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/admin/warehouse/top-user-history", "").Code)
}

func TestProbes(t *testing.T) {
	app := newApp(t, false)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/readyz", "").Code)

	require.NoError(t, app.db.Close())
	assert.Equal(t, http.StatusServiceUnavailable, app.do(http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/healthz", "").Code)
}
