package service

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/senseivictor/baza-de-date/internal/model"
	"github.com/senseivictor/baza-de-date/internal/repository"
)

func TestExecuteAddProductOnEmptyTable(t *testing.T) {
	s := newStore(t, false)
	d := newDispatcher(s)

	res, err := d.Execute(context.Background(), "products", "add", []byte(`{"name":"Mug","price":9.99}`))
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "added", res.Action)
	assert.Equal(t, int64(1), res.ID)
	assert.Equal(t, "Mug", res.Fields["name"])

	rows, err := s.Query(context.Background(), "SELECT product_id, name, price FROM products")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Int64("product_id"))
	assert.Equal(t, "9.99", rows[0].Decimal("price").StringFixed(2))
}

func TestExecuteRejectsUnknownTableAndAction(t *testing.T) {
	d := newDispatcher(newStore(t, false))
	ctx := context.Background()

	var nf *repository.NotFoundError
	_, err := d.Execute(ctx, "invoices", "add", []byte(`{}`))
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, err.Error(), "invoices")

	_, err = d.Execute(ctx, "products", "upsert", []byte(`{}`))
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, err.Error(), "upsert")
}

func TestExecuteAddValidation(t *testing.T) {
	d := newDispatcher(newStore(t, true))
	for name, body := range map[string]string{
		"unknown field":    `{"name":"Mug","price":1,"color":"red"}`,
		"missing required": `{"name":"Mug"}`,
		"null required":    `{"name":"Mug","price":null}`,
		"primary key":      `{"product_id":9,"name":"Mug","price":1}`,
		"negative price":   `{"name":"Mug","price":-1}`,
		"sub-cent price":   `{"name":"Mug","price":9.999}`,
		"price too large":  `{"name":"Mug","price":123456789}`,
		"not an object":    `[1,2]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := d.Execute(context.Background(), "products", "add", []byte(body))
			var bad *repository.BadRequestError
			assert.ErrorAs(t, err, &bad)
		})
	}
}

func TestAddOrderInjectsDefaults(t *testing.T) {
	s := newStore(t, true)
	d := newDispatcher(s)
	d.NewID = func() string { return "fixed-public-id" }

	res, err := d.Execute(context.Background(), "orders", "add",
		[]byte(`{"products":[1,3,3],"order_status":"pending"}`))
	require.NoError(t, err)
	assert.Equal(t, "fixed-public-id", res.Fields["order_public_id"])
	assert.Equal(t, fixedNow.Unix(), res.Fields["created_at"])

	o, err := repository.NewOrderRepo(s).GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "fixed-public-id", o.OrderPublicID)
	assert.Equal(t, fixedNow.Unix(), o.CreatedAt)
	assert.Equal(t, []int64{1, 3, 3}, o.Products)
	assert.Equal(t, model.StatusPending, o.OrderStatus)
	assert.Nil(t, o.UserID)

	// caller-supplied values win over defaults
	res, err = d.Execute(context.Background(), "orders", "add",
		[]byte(`{"order_public_id":"mine","created_at":5,"products":[2],"order_status":"completed"}`))
	require.NoError(t, err)
	o, err = repository.NewOrderRepo(s).GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", o.OrderPublicID)
	assert.Equal(t, int64(5), o.CreatedAt)
}

func TestAddOrderRollsBackOnBadLine(t *testing.T) {
	s := newStore(t, true)
	d := newDispatcher(s)

	_, err := d.Execute(context.Background(), "orders", "add", []byte(`{"products":[1,99],"order_status":"pending"}`))
	var bad *repository.BadRequestError
	require.ErrorAs(t, err, &bad)
	assert.Zero(t, count(t, s, "SELECT order_id FROM orders"))
	assert.Zero(t, count(t, s, "SELECT order_id FROM order_products"))
}

func TestAddUserHashesPassword(t *testing.T) {
	s := newStore(t, false)
	d := newDispatcher(s)

	res, err := d.Execute(context.Background(), "users", "add",
		[]byte(`{"name":"ana","email":"Ana@Example.com","password":"s3cret"}`))
	require.NoError(t, err)
	assert.NotContains(t, res.Fields, "password_hash")
	assert.NotContains(t, res.Fields, "password")
	assert.Equal(t, fixedNow.Unix(), res.Fields["created_at"])

	u, err := repository.NewUserRepo(s).GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	require.NotNil(t, u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte("s3cret")))

	long := []byte(`{"user_id":` + strconv.FormatInt(res.ID, 10) + `,"password":"` + strings.Repeat("p", 80) + `"}`)
	_, err = d.Execute(context.Background(), "users", "update", long)
	var bad *repository.BadRequestError
	assert.ErrorAs(t, err, &bad)
	assert.Equal(t, "ana@example.com", *u.Email)

	_, err = d.Execute(context.Background(), "users", "add", []byte(`{"name":"ana"}`))
	var conflict *repository.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestUpdateIsPartial(t *testing.T) {
	s := newStore(t, false)
	d := newDispatcher(s)
	ctx := context.Background()

	add, err := d.Execute(ctx, "products", "add", []byte(`{"name":"Mug","price":9.99,"brand":"Acme","description":"white"}`))
	require.NoError(t, err)

	res, err := d.Execute(ctx, "products", "update", []byte(`{"product_id":1,"price":12.5,"brand":null}`))
	require.NoError(t, err)
	assert.Equal(t, "updated", res.Action)
	assert.Equal(t, add.ID, res.ID)
	assert.Len(t, res.Fields, 1)

	p, err := repository.NewProductRepo(s).Lookup(ctx, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, "12.50", p[1].Price.StringFixed(2))
	assert.Equal(t, "Mug", p[1].Name)
	assert.Equal(t, "Acme", *p[1].Brand)
	assert.Equal(t, "white", *p[1].Description)
}

func TestUpdateFailures(t *testing.T) {
	s := newStore(t, true)
	d := newDispatcher(s)
	ctx := context.Background()

	var bad *repository.BadRequestError
	_, err := d.Execute(ctx, "products", "update", []byte(`{"product_id":1}`))
	assert.ErrorAs(t, err, &bad, "only the primary key")

	_, err = d.Execute(ctx, "products", "update", []byte(`{"name":"x"}`))
	assert.ErrorAs(t, err, &bad, "primary key missing")

	_, err = d.Execute(ctx, "products", "update", []byte(`{"product_id":1,"created_at":3}`))
	assert.ErrorAs(t, err, &bad, "not updatable")

	var nf *repository.NotFoundError
	_, err = d.Execute(ctx, "products", "update", []byte(`{"product_id":404,"name":"x"}`))
	assert.ErrorAs(t, err, &nf)

	_, err = d.Execute(ctx, "orders", "update", []byte(`{"order_id":404,"products":[1]}`))
	assert.ErrorAs(t, err, &nf)
}

func TestUpdateOrderReplacesLines(t *testing.T) {
	s := newStore(t, true)
	d := newDispatcher(s)
	ctx := context.Background()

	add, err := d.Execute(ctx, "orders", "add", []byte(`{"products":[1,2],"order_status":"pending"}`))
	require.NoError(t, err)

	_, err = d.Execute(ctx, "orders", "update", []byte(`{"order_id":1,"products":[3]}`))
	require.NoError(t, err)
	_, err = d.Update(ctx, model.OrderUpdate{OrderID: add.ID, OrderStatus: strPtr(model.StatusCompleted)})
	require.NoError(t, err)

	o, err := repository.NewOrderRepo(s).GetByID(ctx, add.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, o.Products)
	assert.Equal(t, model.StatusCompleted, o.OrderStatus)
}

func TestDeleteTwiceFailsSecondTime(t *testing.T) {
	s := newStore(t, true)
	d := newDispatcher(s)
	ctx := context.Background()

	add, err := d.Execute(ctx, "orders", "add", []byte(`{"products":[1,1],"order_status":"pending"}`))
	require.NoError(t, err)

	res, err := d.Execute(ctx, "orders", "delete", []byte(`{"order_id":1}`))
	require.NoError(t, err)
	assert.Equal(t, CrudResult{Status: "success", Action: "deleted", ID: add.ID}, res)
	assert.Zero(t, count(t, s, "SELECT order_id FROM orders"))
	assert.Zero(t, count(t, s, "SELECT order_id FROM order_products"))

	var nf *repository.NotFoundError
	_, err = d.Execute(ctx, "orders", "delete", []byte(`{"order_id":1}`))
	assert.ErrorAs(t, err, &nf)

	var bad *repository.BadRequestError
	_, err = d.Execute(ctx, "orders", "delete", []byte(`{"order_status":"x"}`))
	assert.ErrorAs(t, err, &bad)
}

func TestDeleteReferencedProductIsRejected(t *testing.T) {
	s := newStore(t, true)
	d := newDispatcher(s)
	ctx := context.Background()

	_, err := d.Execute(ctx, "orders", "add", []byte(`{"products":[2],"order_status":"pending"}`))
	require.NoError(t, err)

	_, err = d.Delete(ctx, model.TableProducts, 2)
	var bad *repository.BadRequestError
	assert.ErrorAs(t, err, &bad)
	assert.Equal(t, 3, count(t, s, "SELECT product_id FROM products"))

	_, err = d.Delete(ctx, model.TableProducts, 1)
	assert.NoError(t, err)
}

func strPtr(s string) *string { return &s }
