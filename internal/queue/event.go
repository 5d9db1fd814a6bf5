// Package queue defines message payloads exchanged over the message broker
// and the consumer that feeds them into the warehouse.
package queue

import (
	"github.com/shopspring/decimal"
)

// RoutingOrderPlaced is the routing key of OrderPlacedEvent on the orders exchange.
const RoutingOrderPlaced = "order.placed"

// OrderPlacedEvent is published after an order commits.  It carries enough
// information for the warehouse loader to fill every dimension without
// querying the primary database.
type OrderPlacedEvent struct {
	OrderID       int64       `json:"order_id"`
	OrderPublicID string      `json:"order_public_id"`
	UserID        *int64      `json:"user_id,omitempty"`
	UserName      string      `json:"user_name,omitempty"`
	Status        string      `json:"status"`
	CreatedAt     int64       `json:"created_at"`
	Region        string      `json:"region"`
	Metadata      *string     `json:"metadata,omitempty"`
	Lines         []OrderLine `json:"lines"`
}

// OrderLine is one product of the order, in submission order.
type OrderLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
}
