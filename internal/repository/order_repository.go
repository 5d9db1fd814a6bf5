package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/senseivictor/baza-de-date/internal/model"
)

// OrderRepo reads and writes orders together with their product lines in
// order_products.  Lines keep the position they were submitted in, so a
// product can appear more than once in an order.
type OrderRepo struct{ S Storage }

// NewOrderRepo returns an OrderRepo over s.  Inside Storage.Tx pass the
// transactional Storage so that every statement joins the transaction.
func NewOrderRepo(s Storage) *OrderRepo { return &OrderRepo{S: s} }

const orderColumns = "order_id, order_public_id, user_id, order_status, created_at"

// Create inserts the order row and its lines, returning the generated
// order_id.  The caller is expected to run it inside a transaction.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) (int64, error) {
	id, err := r.S.Insert(ctx, "orders", "order_id", []Column{
		{Name: "order_public_id", Value: o.OrderPublicID},
		{Name: "user_id", Value: Nullable(o.UserID)},
		{Name: "order_status", Value: o.OrderStatus},
		{Name: "created_at", Value: o.CreatedAt},
	})
	if err != nil {
		return 0, err
	}
	if err := r.InsertLines(ctx, id, o.Products); err != nil {
		return 0, err
	}
	o.OrderID = id
	return id, nil
}

// InsertLines writes products as positions 0..n-1 of orderID using
// multi-row statements of at most maxInParams bound values.  An empty slice
// is a no-op.
func (r *OrderRepo) InsertLines(ctx context.Context, orderID int64, products []int64) error {
	const perRow = 3
	for start := 0; start < len(products); start += maxInParams / perRow {
		end := min(len(products), start+maxInParams/perRow)
		var b strings.Builder
		b.WriteString("INSERT INTO order_products (order_id, position, product_id) VALUES ")
		args := make([]any, 0, (end-start)*perRow)
		for i := start; i < end; i++ {
			if i > start {
				b.WriteString(", ")
			}
			b.WriteString("(?, ?, ?)")
			args = append(args, orderID, i, products[i])
		}
		if _, err := r.S.Exec(ctx, b.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

// DeleteLines removes every line of orderID.
func (r *OrderRepo) DeleteLines(ctx context.Context, orderID int64) error {
	_, err := r.S.Exec(ctx, "DELETE FROM order_products WHERE order_id = ?", orderID)
	return err
}

// ReplaceLines swaps the product list of orderID for products.
func (r *OrderRepo) ReplaceLines(ctx context.Context, orderID int64, products []int64) error {
	if err := r.DeleteLines(ctx, orderID); err != nil {
		return err
	}
	return r.InsertLines(ctx, orderID, products)
}

// GetByID loads one order.  It returns sql.ErrNoRows when there is none.
func (r *OrderRepo) GetByID(ctx context.Context, id int64) (model.Order, error) {
	orders, err := r.list(ctx, "WHERE order_id = ?", 0, id)
	if err != nil {
		return model.Order{}, err
	}
	if len(orders) == 0 {
		return model.Order{}, sql.ErrNoRows
	}
	return orders[0], nil
}

// ListByUser returns the orders of userID, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.list(ctx, "WHERE user_id = ?", 0, userID)
}

// ListByStatus returns the orders with the given status, newest first.
func (r *OrderRepo) ListByStatus(ctx context.Context, status string) ([]model.Order, error) {
	return r.list(ctx, "WHERE order_status = ?", 0, status)
}

// Latest returns the most recently created order or sql.ErrNoRows.
func (r *OrderRepo) Latest(ctx context.Context) (model.Order, error) {
	orders, err := r.list(ctx, "", 1)
	if err != nil {
		return model.Order{}, err
	}
	if len(orders) == 0 {
		return model.Order{}, sql.ErrNoRows
	}
	return orders[0], nil
}

func (r *OrderRepo) list(ctx context.Context, where string, limit int, args ...any) ([]model.Order, error) {
	d := r.S.Dialect()
	q := "SELECT " + d.Top(limit) + orderColumns + " FROM orders " + where +
		" ORDER BY created_at DESC, order_id DESC" + d.Limit(limit)
	rows, err := r.S.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	orders := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, model.Order{
			OrderID:       row.Int64("order_id"),
			OrderPublicID: row.String("order_public_id"),
			UserID:        row.NullInt64("user_id"),
			Products:      []int64{},
			OrderStatus:   row.String("order_status"),
			CreatedAt:     row.Int64("created_at"),
		})
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachLines fills Products for every order, one IN query per
// maxInParams orders.
func (r *OrderRepo) attachLines(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	idx := make(map[int64]int, len(orders))
	args := make([]any, len(orders))
	for i, o := range orders {
		idx[o.OrderID] = i
		args[i] = o.OrderID
	}
	return inChunks(args, func(part []any) error {
		q := "SELECT order_id, product_id FROM order_products WHERE order_id IN (" +
			placeholders(len(part)) + ") ORDER BY order_id, position"
		rows, err := r.S.Query(ctx, q, part...)
		if err != nil {
			return err
		}
		for _, row := range rows {
			i := idx[row.Int64("order_id")]
			orders[i].Products = append(orders[i].Products, row.Int64("product_id"))
		}
		return nil
	})
}

// maxInParams bounds the markers of a single IN list.  SQL Server rejects
// statements with more than 2100 parameters.
const maxInParams = 1000

// inChunks calls fn with consecutive slices of args no longer than
// maxInParams, stopping at the first error.
func inChunks(args []any, fn func(part []any) error) error {
	for len(args) > 0 {
		n := min(len(args), maxInParams)
		if err := fn(args[:n]); err != nil {
			return err
		}
		args = args[n:]
	}
	return nil
}

// distinctArgs returns ids without duplicates, in first-seen order.
func distinctArgs(ids []int64) []any {
	seen := make(map[int64]bool, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			args = append(args, id)
		}
	}
	return args
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
