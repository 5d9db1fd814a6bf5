package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/senseivictor/baza-de-date/internal/model"
	"github.com/senseivictor/baza-de-date/internal/queue"
	"github.com/senseivictor/baza-de-date/internal/repository"
)

// DefaultRegion is recorded for orders placed without a region.
const DefaultRegion = "unknown"

// PlaceOrderInput is the body of POST /process-order.
type PlaceOrderInput struct {
	UserID   *int64  `json:"user_id"`
	Products []int64 `json:"products"`
	Status   string  `json:"status"`
	Region   string  `json:"region"`
	Metadata *string `json:"metadata"`
}

// OrderService places orders and serves the order listings.
type OrderService struct {
	Store  repository.Storage
	Events EventPublisher
	Now    func() time.Time
	NewID  func() string
}

// NewOrderService returns an OrderService; events may be nil.
func NewOrderService(store repository.Storage, events EventPublisher) *OrderService {
	return &OrderService{Store: store, Events: events, Now: time.Now, NewID: uuid.NewString}
}

// Place validates the input, stores the order and its lines in one
// transaction and, once committed, publishes an order.placed event when
// events are enabled.  A publish failure is logged, not returned.
func (s *OrderService) Place(ctx context.Context, in PlaceOrderInput) (model.Order, error) {
	if len(in.Products) == 0 {
		return model.Order{}, repository.BadRequest("products must contain at least one product id")
	}
	for _, id := range in.Products {
		if id <= 0 {
			return model.Order{}, repository.BadRequest("product id %d is not valid", id)
		}
	}
	if in.UserID != nil && *in.UserID <= 0 {
		return model.Order{}, repository.BadRequest("user_id must be positive")
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = model.StatusCompleted
	}

	o := model.Order{
		OrderPublicID: s.NewID(),
		UserID:        in.UserID,
		Products:      in.Products,
		OrderStatus:   status,
		CreatedAt:     s.Now().Unix(),
	}
	var (
		products map[int64]model.Product
		userName string
	)
	err := s.Store.Tx(ctx, func(tx repository.Storage) error {
		var err error
		if in.UserID != nil {
			u, err := repository.NewUserRepo(tx).GetByID(ctx, *in.UserID)
			if errors.Is(err, sql.ErrNoRows) {
				return repository.BadRequest("user %d does not exist", *in.UserID)
			}
			if err != nil {
				return err
			}
			userName = u.Name
		}
		products, err = repository.NewProductRepo(tx).Lookup(ctx, in.Products)
		if err != nil {
			return err
		}
		for _, id := range in.Products {
			if _, ok := products[id]; !ok {
				return repository.BadRequest("product %d does not exist", id)
			}
		}
		_, err = repository.NewOrderRepo(tx).Create(ctx, &o)
		return err
	})
	if err != nil {
		return model.Order{}, err
	}

	if s.Events != nil {
		ev := queue.OrderPlacedEvent{
			OrderID:       o.OrderID,
			OrderPublicID: o.OrderPublicID,
			UserID:        o.UserID,
			UserName:      userName,
			Status:        o.OrderStatus,
			CreatedAt:     o.CreatedAt,
			Region:        in.Region,
			Metadata:      in.Metadata,
		}
		if strings.TrimSpace(ev.Region) == "" {
			ev.Region = DefaultRegion
		}
		for _, id := range o.Products {
			p := products[id]
			ev.Lines = append(ev.Lines, queue.OrderLine{ProductID: id, Name: p.Name, Price: p.Price})
		}
		if err := s.Events.PublishOrderPlaced(ctx, ev); err != nil {
			log.Printf("order %s: publish order.placed failed: %v", o.OrderPublicID, err)
		}
	}
	return o, nil
}

// ListForUser returns the orders of userID, newest first, with product
// names resolved.
func (s *OrderService) ListForUser(ctx context.Context, userID int64) ([]model.OrderSummary, error) {
	orders, err := repository.NewOrderRepo(s.Store).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, orders)
}

// ListByStatus returns the orders with the given status, newest first.
func (s *OrderService) ListByStatus(ctx context.Context, status string) ([]model.OrderSummary, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, repository.BadRequest("status is required")
	}
	orders, err := repository.NewOrderRepo(s.Store).ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, orders)
}

// Latest returns the most recently created order.
func (s *OrderService) Latest(ctx context.Context) (model.OrderSummary, error) {
	o, err := repository.NewOrderRepo(s.Store).Latest(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OrderSummary{}, repository.NotFound("no orders yet")
	}
	if err != nil {
		return model.OrderSummary{}, err
	}
	out, err := s.summarize(ctx, []model.Order{o})
	if err != nil {
		return model.OrderSummary{}, err
	}
	return out[0], nil
}

// summarize resolves every product id of orders with a single lookup.  A
// product id without a row is an integrity failure and fails the call.
func (s *OrderService) summarize(ctx context.Context, orders []model.Order) ([]model.OrderSummary, error) {
	var ids []int64
	for _, o := range orders {
		ids = append(ids, o.Products...)
	}
	products, err := repository.NewProductRepo(s.Store).Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]model.OrderSummary, 0, len(orders))
	for _, o := range orders {
		names := make([]string, 0, len(o.Products))
		for _, id := range o.Products {
			p, ok := products[id]
			if !ok {
				return nil, fmt.Errorf("order %d references missing product %d", o.OrderID, id)
			}
			names = append(names, p.Name)
		}
		out = append(out, model.OrderSummary{
			OrderID:       o.OrderID,
			OrderPublicID: o.OrderPublicID,
			UserID:        o.UserID,
			Products:      strings.Join(names, ", "),
			OrderStatus:   o.OrderStatus,
			CreatedAt:     o.CreatedAt,
		})
	}
	return out, nil
}
