package model

import "github.com/shopspring/decimal"

// CreateRecord is the payload of an add action.  The set of
// implementations is closed: UserCreate, ProductCreate and OrderCreate.
type CreateRecord interface {
	Table() Table
	createRecord()
}

// UpdateRecord is the payload of an update action.  Key returns the
// primary-key value; nil pointer fields are left unchanged.
type UpdateRecord interface {
	Table() Table
	Key() int64
	updateRecord()
}

type UserCreate struct {
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	CreatedAt *int64  `json:"created_at"`
}

type UserUpdate struct {
	UserID   int64   `json:"user_id"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type ProductCreate struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Brand       *string         `json:"brand"`
	Description *string         `json:"description"`
}

type ProductUpdate struct {
	ProductID   int64            `json:"product_id"`
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Brand       *string          `json:"brand"`
	Description *string          `json:"description"`
}

// OrderCreate carries the caller's order fields.  OrderPublicID and
// CreatedAt are filled by the server when absent.
type OrderCreate struct {
	OrderPublicID *string `json:"order_public_id"`
	UserID        *int64  `json:"user_id"`
	Products      []int64 `json:"products"`
	OrderStatus   string  `json:"order_status"`
	CreatedAt     *int64  `json:"created_at"`
}

// OrderUpdate replaces the product list when Products is non-nil.
type OrderUpdate struct {
	OrderID     int64   `json:"order_id"`
	UserID      *int64  `json:"user_id"`
	Products    []int64 `json:"products"`
	OrderStatus *string `json:"order_status"`
}

func (UserCreate) Table() Table    { return TableUsers }
func (ProductCreate) Table() Table { return TableProducts }
func (OrderCreate) Table() Table   { return TableOrders }
func (UserUpdate) Table() Table    { return TableUsers }
func (ProductUpdate) Table() Table { return TableProducts }
func (OrderUpdate) Table() Table   { return TableOrders }

func (u UserUpdate) Key() int64    { return u.UserID }
func (p ProductUpdate) Key() int64 { return p.ProductID }
func (o OrderUpdate) Key() int64   { return o.OrderID }

func (UserCreate) createRecord()    {}
func (ProductCreate) createRecord() {}
func (OrderCreate) createRecord()   {}
func (UserUpdate) updateRecord()    {}
func (ProductUpdate) updateRecord() {}
func (OrderUpdate) updateRecord()   {}
