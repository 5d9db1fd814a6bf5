// Package service holds the application logic between the HTTP handlers and
// the repositories: the generic CRUD dispatcher, order placement, user
// registration, reports and the warehouse loader.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/senseivictor/baza-de-date/internal/model"
	"github.com/senseivictor/baza-de-date/internal/repository"
)

// CrudResult is the response of a dispatched action.  Fields lists the
// columns written by add and update; password hashes are never included.
type CrudResult struct {
	Status string         `json:"status"`
	Action string         `json:"action"`
	ID     int64          `json:"id"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Dispatcher routes (table, action) pairs to typed insert, update and
// delete logic.  Every action runs in its own transaction.
type Dispatcher struct {
	Store      repository.Storage
	BcryptCost int
	Now        func() time.Time
	NewID      func() string
}

// NewDispatcher wires a Dispatcher with the wall clock and UUID v4 public ids.
func NewDispatcher(store repository.Storage, bcryptCost int) *Dispatcher {
	return &Dispatcher{Store: store, BcryptCost: bcryptCost, Now: time.Now, NewID: uuid.NewString}
}

// Execute is the string-keyed entry point used by the HTTP boundary.  An
// unknown table or action yields NotFoundError; an invalid payload yields
// BadRequestError.
func (d *Dispatcher) Execute(ctx context.Context, table, action string, payload []byte) (CrudResult, error) {
	t, ok := model.ParseTable(table)
	if !ok {
		return CrudResult{}, repository.NotFound("unknown table %q", table)
	}
	a, ok := model.ParseAction(action)
	if !ok {
		return CrudResult{}, repository.NotFound("unknown action %q", action)
	}

	switch a {
	case model.ActionAdd:
		rec, err := model.DecodeCreate(t, payload)
		if err != nil {
			return CrudResult{}, invalidInput(err)
		}
		return d.Add(ctx, rec)
	case model.ActionUpdate:
		rec, err := model.DecodeUpdate(t, payload)
		if err != nil {
			return CrudResult{}, invalidInput(err)
		}
		return d.Update(ctx, rec)
	default:
		id, err := model.DecodeKey(t, payload)
		if err != nil {
			return CrudResult{}, invalidInput(err)
		}
		return d.Delete(ctx, t, id)
	}
}

func invalidInput(err error) error {
	return &repository.BadRequestError{Msg: err.Error(), Err: err}
}

// Add inserts one row.  Orders get a public id and created_at when absent
// and their product lines are written in the same transaction; users get
// created_at when absent and a supplied password is stored as a bcrypt hash.
func (d *Dispatcher) Add(ctx context.Context, rec model.CreateRecord) (CrudResult, error) {
	s := model.SchemaFor(rec.Table())
	var (
		id     int64
		fields map[string]any
	)
	err := d.Store.Tx(ctx, func(tx repository.Storage) error {
		var err error
		switch r := rec.(type) {
		case model.UserCreate:
			createdAt := d.now()
			if r.CreatedAt != nil {
				createdAt = *r.CreatedAt
			}
			cols := []repository.Column{
				{Name: "name", Value: r.Name},
				{Name: "email", Value: repository.Nullable(r.Email)},
				{Name: "created_at", Value: createdAt},
			}
			if r.Password != nil {
				hash, err := hashPassword(*r.Password, d.BcryptCost)
				if err != nil {
					return err
				}
				cols = append(cols, repository.Column{Name: "password_hash", Value: hash})
			}
			fields = columnFields(cols)
			id, err = tx.Insert(ctx, s.Name, s.PrimaryKey, cols)
		case model.ProductCreate:
			cols := []repository.Column{
				{Name: "name", Value: r.Name},
				{Name: "price", Value: r.Price},
				{Name: "brand", Value: repository.Nullable(r.Brand)},
				{Name: "description", Value: repository.Nullable(r.Description)},
			}
			fields = columnFields(cols)
			id, err = tx.Insert(ctx, s.Name, s.PrimaryKey, cols)
		case model.OrderCreate:
			o := model.Order{
				UserID:      r.UserID,
				Products:    r.Products,
				OrderStatus: r.OrderStatus,
				CreatedAt:   d.now(),
			}
			if r.OrderPublicID != nil {
				o.OrderPublicID = *r.OrderPublicID
			} else {
				o.OrderPublicID = d.NewID()
			}
			if r.CreatedAt != nil {
				o.CreatedAt = *r.CreatedAt
			}
			id, err = repository.NewOrderRepo(tx).Create(ctx, &o)
			fields = map[string]any{
				"order_public_id": o.OrderPublicID,
				"user_id":         o.UserID,
				"products":        o.Products,
				"order_status":    o.OrderStatus,
				"created_at":      o.CreatedAt,
			}
		default:
			return fmt.Errorf("unsupported create record %T", rec)
		}
		return err
	})
	if err != nil {
		return CrudResult{}, err
	}
	return CrudResult{Status: "success", Action: "added", ID: id, Fields: fields}, nil
}

// Update applies the supplied fields of rec to the row it names.  Omitted
// fields are left unchanged; an order's products list, when supplied,
// replaces all of its lines.
func (d *Dispatcher) Update(ctx context.Context, rec model.UpdateRecord) (CrudResult, error) {
	s := model.SchemaFor(rec.Table())
	var (
		cols  []repository.Column
		lines []int64
	)
	switch r := rec.(type) {
	case model.UserUpdate:
		cols = appendSet(cols, "name", r.Name)
		cols = appendSet(cols, "email", r.Email)
		if r.Password != nil {
			hash, err := hashPassword(*r.Password, d.BcryptCost)
			if err != nil {
				return CrudResult{}, err
			}
			cols = append(cols, repository.Column{Name: "password_hash", Value: hash})
		}
	case model.ProductUpdate:
		cols = appendSet(cols, "name", r.Name)
		cols = appendSet(cols, "price", r.Price)
		cols = appendSet(cols, "brand", r.Brand)
		cols = appendSet(cols, "description", r.Description)
	case model.OrderUpdate:
		cols = appendSet(cols, "user_id", r.UserID)
		cols = appendSet(cols, "order_status", r.OrderStatus)
		lines = r.Products
	default:
		return CrudResult{}, fmt.Errorf("unsupported update record %T", rec)
	}
	if len(cols) == 0 && lines == nil {
		return CrudResult{}, repository.BadRequest("no updatable fields supplied for %s", s.Name)
	}

	id := rec.Key()
	err := d.Store.Tx(ctx, func(tx repository.Storage) error {
		if len(cols) > 0 {
			n, err := tx.UpdateByID(ctx, s.Name, s.PrimaryKey, id, cols)
			if err != nil {
				return err
			}
			if n == 0 {
				return repository.NotFound("%s %d not found", s.Name, id)
			}
		} else {
			rows, err := tx.Query(ctx, "SELECT order_id FROM orders WHERE order_id = ?", id)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return repository.NotFound("%s %d not found", s.Name, id)
			}
		}
		if lines != nil {
			return repository.NewOrderRepo(tx).ReplaceLines(ctx, id, lines)
		}
		return nil
	})
	if err != nil {
		return CrudResult{}, err
	}

	fields := columnFields(cols)
	if lines != nil {
		fields["products"] = lines
	}
	return CrudResult{Status: "success", Action: "updated", ID: id, Fields: fields}, nil
}

// Delete removes the row of table t keyed by id.  Deleting an order removes
// its lines first; deleting a row still referenced elsewhere is rejected by
// the database as a bad request.
func (d *Dispatcher) Delete(ctx context.Context, t model.Table, id int64) (CrudResult, error) {
	s := model.SchemaFor(t)
	err := d.Store.Tx(ctx, func(tx repository.Storage) error {
		if t == model.TableOrders {
			if err := repository.NewOrderRepo(tx).DeleteLines(ctx, id); err != nil {
				return err
			}
		}
		n, err := tx.DeleteByID(ctx, s.Name, s.PrimaryKey, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.NotFound("%s %d not found", s.Name, id)
		}
		return nil
	})
	if err != nil {
		return CrudResult{}, err
	}
	return CrudResult{Status: "success", Action: "deleted", ID: id}, nil
}

func (d *Dispatcher) now() int64 {
	if d.Now == nil {
		return time.Now().Unix()
	}
	return d.Now().Unix()
}

func appendSet[T any](cols []repository.Column, name string, v *T) []repository.Column {
	if v == nil {
		return cols
	}
	return append(cols, repository.Column{Name: name, Value: *v})
}

func columnFields(cols []repository.Column) map[string]any {
	out := make(map[string]any, len(cols))
	for _, c := range cols {
		if c.Name == "password_hash" {
			continue
		}
		out[c.Name] = c.Value
	}
	return out
}
