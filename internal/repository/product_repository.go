package repository

import (
	"context"

	"github.com/senseivictor/baza-de-date/internal/model"
)

// ProductRepo reads the product catalogue.  Writes go through the generic
// CRUD dispatcher.
type ProductRepo struct{ S Storage }

func NewProductRepo(s Storage) *ProductRepo { return &ProductRepo{S: s} }

const productSelect = "SELECT product_id, name, price, brand, description FROM products"

// List returns every product ordered by id.
func (r *ProductRepo) List(ctx context.Context) ([]model.Product, error) {
	rows, err := r.S.Query(ctx, productSelect+" ORDER BY product_id")
	if err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, scanProduct(row))
	}
	return out, nil
}

// Lookup loads the distinct products among ids, keyed by id.  Ids without
// a row are absent from the map.
func (r *ProductRepo) Lookup(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	out := make(map[int64]model.Product, len(ids))
	err := inChunks(distinctArgs(ids), func(part []any) error {
		rows, err := r.S.Query(ctx, productSelect+" WHERE product_id IN ("+placeholders(len(part))+")", part...)
		if err != nil {
			return err
		}
		for _, row := range rows {
			p := scanProduct(row)
			out[p.ProductID] = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanProduct(row Record) model.Product {
	return model.Product{
		ProductID:   row.Int64("product_id"),
		Name:        row.String("name"),
		Price:       row.Decimal("price").Round(2),
		Brand:       row.NullString("brand"),
		Description: row.NullString("description"),
	}
}
