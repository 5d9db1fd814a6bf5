package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// WarehouseRepo writes the star schema: DimUser, DimProduct, DimLocation,
// DimStatus, DimTime, DimOrder and FactOrderItems.  Dimension writes are
// insert-if-absent so that replaying an event never duplicates a row.
type WarehouseRepo struct{ S Storage }

func NewWarehouseRepo(s Storage) *WarehouseRepo { return &WarehouseRepo{S: s} }

// Fact is one FactOrderItems row, i.e. one order line.
type Fact struct {
	OrderID     int64
	ProductID   int64
	UserID      *int64
	LocationID  int64
	StatusID    int64
	TimeID      int64
	SalesAmount decimal.Decimal
	Metadata    *string
}

// TimeID is the DimTime key of t: YYYYMMDD in t's location.
func TimeID(t time.Time) int64 {
	return int64(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// DateOf is the inverse of TimeID, at midnight UTC.
func DateOf(timeID int64) time.Time {
	return time.Date(int(timeID/10000), time.Month(timeID/100%100), int(timeID%100), 0, 0, 0, 0, time.UTC)
}

// HasOrder reports whether DimOrder already holds orderID.
func (r *WarehouseRepo) HasOrder(ctx context.Context, orderID int64) (bool, error) {
	rows, err := r.S.Query(ctx, "SELECT order_id FROM DimOrder WHERE order_id = ?", orderID)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// InsertOrder records the order dimension row.
func (r *WarehouseRepo) InsertOrder(ctx context.Context, orderID int64, publicID string) error {
	_, err := r.S.Insert(ctx, "DimOrder", "order_id", []Column{
		{Name: "order_id", Value: orderID},
		{Name: "order_public_id", Value: publicID},
	})
	return err
}

// EnsureUser inserts the user dimension row when it is missing.
func (r *WarehouseRepo) EnsureUser(ctx context.Context, userID int64, name string) error {
	return r.ensureKeyed(ctx, "DimUser", "user_id", userID, []Column{
		{Name: "user_id", Value: userID},
		{Name: "name", Value: name},
	})
}

// EnsureProduct inserts the product dimension row when it is missing.
func (r *WarehouseRepo) EnsureProduct(ctx context.Context, productID int64, name string, price decimal.Decimal) error {
	return r.ensureKeyed(ctx, "DimProduct", "product_id", productID, []Column{
		{Name: "product_id", Value: productID},
		{Name: "name", Value: name},
		{Name: "price", Value: price},
	})
}

// EnsureTime inserts the DimTime row of t's calendar day and returns its key.
func (r *WarehouseRepo) EnsureTime(ctx context.Context, t time.Time) (int64, error) {
	id := TimeID(t)
	err := r.ensureKeyed(ctx, "DimTime", "time_id", id, []Column{
		{Name: "time_id", Value: id},
		{Name: "full_date", Value: t.Format("2006-01-02")},
		{Name: "year", Value: t.Year()},
		{Name: "month", Value: int(t.Month())},
		{Name: "day", Value: t.Day()},
	})
	return id, err
}

// EnsureLocation returns the id of region, creating it on first use.
func (r *WarehouseRepo) EnsureLocation(ctx context.Context, region string) (int64, error) {
	return r.ensureNamed(ctx, "DimLocation", "location_id", "region", region)
}

// EnsureStatus returns the id of the status name, creating it on first use.
func (r *WarehouseRepo) EnsureStatus(ctx context.Context, name string) (int64, error) {
	return r.ensureNamed(ctx, "DimStatus", "status_id", "name", name)
}

// InsertFact writes one fact row and returns its fact_id.
func (r *WarehouseRepo) InsertFact(ctx context.Context, f Fact) (int64, error) {
	return r.S.Insert(ctx, "FactOrderItems", "fact_id", []Column{
		{Name: "order_id", Value: f.OrderID},
		{Name: "product_id", Value: f.ProductID},
		{Name: "user_id", Value: Nullable(f.UserID)},
		{Name: "location_id", Value: f.LocationID},
		{Name: "status_id", Value: f.StatusID},
		{Name: "time_id", Value: f.TimeID},
		{Name: "sales_amount", Value: f.SalesAmount},
		{Name: "metadata", Value: Nullable(f.Metadata)},
	})
}

// ProductNames resolves DimProduct ids to names.
func (r *WarehouseRepo) ProductNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	return lookupNames(ctx, r.S, "DimProduct", "product_id", "name", ids)
}

// Regions resolves DimLocation ids to region names.
func (r *WarehouseRepo) Regions(ctx context.Context, ids []int64) (map[int64]string, error) {
	return lookupNames(ctx, r.S, "DimLocation", "location_id", "region", ids)
}

// UserNames resolves DimUser ids to names.
func (r *WarehouseRepo) UserNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	return lookupNames(ctx, r.S, "DimUser", "user_id", "name", ids)
}

// FactDetail is a fact row carrying metadata, joined with its product,
// user and region names.
type FactDetail struct {
	FactID      int64
	OrderID     int64
	TimeID      int64
	Product     string
	Client      *string
	Region      string
	SalesAmount decimal.Decimal
	Metadata    string
}

const factDetailSelect = "f.fact_id, f.order_id, f.time_id, p.name AS product, u.name AS client, " +
	"l.region, f.sales_amount, f.metadata FROM FactOrderItems f " +
	"JOIN DimProduct p ON p.product_id = f.product_id " +
	"JOIN DimLocation l ON l.location_id = f.location_id " +
	"LEFT JOIN DimUser u ON u.user_id = f.user_id " +
	"WHERE f.metadata IS NOT NULL AND f.time_id BETWEEN ? AND ?"

// LatestFactWithMetadata returns the most recent fact with metadata whose
// time_id lies in days, or sql.ErrNoRows.
func (r *WarehouseRepo) LatestFactWithMetadata(ctx context.Context, days TimeRange) (FactDetail, error) {
	facts, err := r.factDetails(ctx, "f.time_id DESC, f.fact_id DESC", 1, days)
	if err != nil {
		return FactDetail{}, err
	}
	if len(facts) == 0 {
		return FactDetail{}, sql.ErrNoRows
	}
	return facts[0], nil
}

// TopFactsWithMetadata returns up to limit facts with metadata in days,
// largest sales_amount first.
func (r *WarehouseRepo) TopFactsWithMetadata(ctx context.Context, limit int, days TimeRange) ([]FactDetail, error) {
	return r.factDetails(ctx, "f.sales_amount DESC, f.fact_id ASC", limit, days)
}

func (r *WarehouseRepo) factDetails(ctx context.Context, orderBy string, limit int, days TimeRange) ([]FactDetail, error) {
	d := r.S.Dialect()
	q := "SELECT " + d.Top(limit) + factDetailSelect + " ORDER BY " + orderBy + d.Limit(limit)
	rows, err := r.S.Query(ctx, q, days.Start, days.End)
	if err != nil {
		return nil, err
	}
	out := make([]FactDetail, 0, len(rows))
	for _, row := range rows {
		out = append(out, FactDetail{
			FactID:      row.Int64("fact_id"),
			OrderID:     row.Int64("order_id"),
			TimeID:      row.Int64("time_id"),
			Product:     row.String("product"),
			Client:      row.NullString("client"),
			Region:      row.String("region"),
			SalesAmount: row.Decimal("sales_amount").Round(2),
			Metadata:    row.String("metadata"),
		})
	}
	return out, nil
}

// MetadataHistory lists the non-null metadata of userID's facts in days,
// oldest first.
func (r *WarehouseRepo) MetadataHistory(ctx context.Context, userID int64, days TimeRange) ([]string, error) {
	rows, err := r.S.Query(ctx,
		"SELECT metadata FROM FactOrderItems WHERE user_id = ? AND metadata IS NOT NULL "+
			"AND time_id BETWEEN ? AND ? ORDER BY time_id, fact_id",
		userID, days.Start, days.End)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.String("metadata"))
	}
	return out, nil
}

func (r *WarehouseRepo) ensureKeyed(ctx context.Context, table, pk string, id int64, cols []Column) error {
	rows, err := r.S.Query(ctx, "SELECT "+pk+" FROM "+table+" WHERE "+pk+" = ?", id)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return nil
	}
	_, err = r.S.Insert(ctx, table, pk, cols)
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		// written concurrently by another loader
		return nil
	}
	return err
}

func (r *WarehouseRepo) ensureNamed(ctx context.Context, table, pk, col, value string) (int64, error) {
	find := func() (int64, bool, error) {
		rows, err := r.S.Query(ctx, "SELECT "+pk+" FROM "+table+" WHERE "+col+" = ?", value)
		if err != nil || len(rows) == 0 {
			return 0, false, err
		}
		return rows[0].Int64(pk), true, nil
	}
	if id, ok, err := find(); err != nil || ok {
		return id, err
	}
	id, err := r.S.Insert(ctx, table, pk, []Column{{Name: col, Value: value}})
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		id, _, err = find()
	}
	return id, err
}

// lookupNames maps ids to a text column of table.
func lookupNames(ctx context.Context, s Storage, table, idCol, nameCol string, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	err := inChunks(distinctArgs(ids), func(part []any) error {
		q := "SELECT " + idCol + ", " + nameCol + " FROM " + table + " WHERE " + idCol + " IN (" + placeholders(len(part)) + ")"
		rows, err := s.Query(ctx, q, part...)
		if err != nil {
			return err
		}
		for _, row := range rows {
			out[row.Int64(idCol)] = row.String(nameCol)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
