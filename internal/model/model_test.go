package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCoversEveryTable(t *testing.T) {
	for _, table := range Tables() {
		s := SchemaFor(table)
		require.NotEmpty(t, s.Name, "table %d has no schema", table)
		assert.NotEmpty(t, s.PrimaryKey)
		assert.NotContains(t, s.Creatable, s.PrimaryKey, "%s: primary key is server-assigned", s.Name)
		assert.NotContains(t, s.Updatable, s.PrimaryKey, "%s", s.Name)

		parsed, ok := ParseTable(s.Name)
		assert.True(t, ok)
		assert.Equal(t, table, parsed)
		assert.Equal(t, s.Name, table.String())
	}
	_, ok := ParseTable("invoices")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Table(99).String())
}

func TestParseAction(t *testing.T) {
	for in, want := range map[string]Action{"add": ActionAdd, " Update ": ActionUpdate, "DELETE": ActionDelete} {
		got, ok := ParseAction(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParseAction("upsert")
	assert.False(t, ok)
}

func TestDecodeCreateProduct(t *testing.T) {
	rec, err := DecodeCreate(TableProducts, []byte(`{"name":"  Mug ","price":9.99}`))
	require.NoError(t, err)
	p, ok := rec.(ProductCreate)
	require.True(t, ok)
	assert.Equal(t, "Mug", p.Name)
	assert.Equal(t, "9.99", p.Price.StringFixed(2))
	assert.Nil(t, p.Brand)
	assert.Equal(t, TableProducts, rec.Table())

	rec, err = DecodeCreate(TableProducts, []byte(`{"name":"Safe","price":99999999.99}`))
	require.NoError(t, err)
	assert.Equal(t, "99999999.99", rec.(ProductCreate).Price.String())
	_, err = DecodeCreate(TableProducts, []byte(`{"name":"Round","price":12.50}`))
	assert.NoError(t, err, "trailing zeros are not extra precision")
}

func TestDecodeCreateUserNormalizesEmail(t *testing.T) {
	rec, err := DecodeCreate(TableUsers, []byte(`{"name":"ana","email":" Ana@Example.COM "}`))
	require.NoError(t, err)
	u := rec.(UserCreate)
	assert.Equal(t, "ana@example.com", *u.Email)
	assert.Nil(t, u.Password)
}

func TestDecodeCreateRejects(t *testing.T) {
	cases := []struct {
		name    string
		table   Table
		payload string
		msg     string
	}{
		{"not json", TableProducts, `{`, "JSON object"},
		{"array", TableProducts, `[]`, "JSON object"},
		{"unknown field", TableProducts, `{"name":"a","price":1,"color":"red"}`, `"color"`},
		{"primary key", TableUsers, `{"user_id":1,"name":"a"}`, `"user_id"`},
		{"missing required", TableOrders, `{"order_status":"pending"}`, `"products"`},
		{"null required", TableProducts, `{"name":null,"price":1}`, `"name"`},
		{"wrong type", TableProducts, `{"name":1,"price":1}`, `"name"`},
		{"blank name", TableUsers, `{"name":"   "}`, "name"},
		{"bad email", TableUsers, `{"name":"a","email":"nope"}`, "email"},
		{"empty password", TableUsers, `{"name":"a","password":""}`, "password"},
		{"negative price", TableProducts, `{"name":"a","price":-0.01}`, "price"},
		{"fractional cents", TableProducts, `{"name":"a","price":9.999}`, "2 decimal places"},
		{"price out of range", TableProducts, `{"name":"a","price":100000000}`, "below"},
		{"empty products", TableOrders, `{"products":[],"order_status":"x"}`, "products"},
		{"zero product", TableOrders, `{"products":[1,0],"order_status":"x"}`, "product id 0"},
		{"blank status", TableOrders, `{"products":[1],"order_status":" "}`, "order_status"},
		{"bad user", TableOrders, `{"products":[1],"order_status":"x","user_id":0}`, "user_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeCreate(tc.table, []byte(tc.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPayload))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestDecodeUpdate(t *testing.T) {
	rec, err := DecodeUpdate(TableProducts, []byte(`{"product_id":3,"price":12.5,"brand":null}`))
	require.NoError(t, err)
	p := rec.(ProductUpdate)
	assert.Equal(t, int64(3), p.Key())
	require.NotNil(t, p.Price)
	assert.Equal(t, "12.5", p.Price.String())
	assert.Nil(t, p.Brand)
	assert.Nil(t, p.Name)

	rec, err = DecodeUpdate(TableOrders, []byte(`{"order_id":2,"products":[4,4]}`))
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 4}, rec.(OrderUpdate).Products)

	for name, payload := range map[string]string{
		"missing key":   `{"name":"x"}`,
		"string key":    `{"product_id":"1","name":"x"}`,
		"negative key":  `{"product_id":-1,"name":"x"}`,
		"not updatable": `{"product_id":1,"created_at":1}`,
		"blank name":    `{"product_id":1,"name":""}`,
		"price scale":   `{"product_id":1,"price":0.001}`,
		"price range":   `{"product_id":1,"price":1e8}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeUpdate(TableProducts, []byte(payload))
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestDecodeKeyIgnoresOtherFields(t *testing.T) {
	id, err := DecodeKey(TableOrders, []byte(`{"order_id":7,"order_status":"pending","whatever":true}`))
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = DecodeKey(TableOrders, []byte(`{"order_status":"pending"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	_, err = DecodeKey(TableOrders, []byte(`{"order_id":1.5}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
