package model

import "github.com/shopspring/decimal"

// Order status values used by the API.  order_status is free text, so
// other values written through the generic CRUD endpoint are kept as-is.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
)

// Order represents a row of the `orders` table together with its product
// references, which live in `order_products` (one row per position).
//
// Fields:
//  OrderID       – internal primary key.
//  OrderPublicID – opaque identifier issued by the server and shown to clients.
//  UserID        – owning user; nil for guest orders.
//  Products      – product ids in the order they were placed; duplicates allowed.
//  OrderStatus   – pending, completed, ...
//  CreatedAt     – creation time in seconds since epoch.
type Order struct {
	OrderID       int64   `json:"order_id"`        // orders.order_id
	OrderPublicID string  `json:"order_public_id"` // orders.order_public_id
	UserID        *int64  `json:"user_id"`         // orders.user_id (nullable)
	Products      []int64 `json:"products"`        // order_products.product_id by position
	OrderStatus   string  `json:"order_status"`    // orders.order_status
	CreatedAt     int64   `json:"created_at"`      // orders.created_at
}

// OrderSummary is an order with its product names resolved, as returned
// by /get-orders.
type OrderSummary struct {
	OrderID       int64  `json:"order_id"`
	OrderPublicID string `json:"order_public_id"`
	UserID        *int64 `json:"user_id"`
	Products      string `json:"products"`
	OrderStatus   string `json:"order_status"`
	CreatedAt     int64  `json:"created_at"`
}

// Product is static reference data from the `products` table.
type Product struct {
	ProductID   int64           `json:"product_id"`  // products.product_id
	Name        string          `json:"name"`        // products.name
	Price       decimal.Decimal `json:"price"`       // products.price
	Brand       *string         `json:"brand"`       // products.brand (nullable)
	Description *string         `json:"description"` // products.description (nullable)
}
