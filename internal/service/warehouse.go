package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/senseivictor/baza-de-date/internal/queue"
	"github.com/senseivictor/baza-de-date/internal/repository"
)

// DefaultTopRegions is the size of the top regions ranking.
const DefaultTopRegions = 5

// WarehouseLoader writes order.placed events into the star schema.
type WarehouseLoader struct {
	Store repository.Storage
	Loc   *time.Location
}

func NewWarehouseLoader(store repository.Storage, loc *time.Location) *WarehouseLoader {
	if loc == nil {
		loc = time.UTC
	}
	return &WarehouseLoader{Store: store, Loc: loc}
}

// Load stores ev in one transaction: the order, user, location, status and
// time dimensions plus one fact row per line.  An order already present in
// DimOrder is skipped, so redelivered events are harmless.  loaded reports
// whether anything was written.
func (l *WarehouseLoader) Load(ctx context.Context, ev queue.OrderPlacedEvent) (loaded bool, err error) {
	err = l.Store.Tx(ctx, func(tx repository.Storage) error {
		wh := repository.NewWarehouseRepo(tx)
		seen, err := wh.HasOrder(ctx, ev.OrderID)
		if err != nil || seen {
			return err
		}
		if ev.UserID != nil {
			name := ev.UserName
			if name == "" {
				name = fmt.Sprintf("user-%d", *ev.UserID)
			}
			if err := wh.EnsureUser(ctx, *ev.UserID, name); err != nil {
				return fmt.Errorf("dim user: %w", err)
			}
		}
		region := strings.TrimSpace(ev.Region)
		if region == "" {
			region = DefaultRegion
		}
		locationID, err := wh.EnsureLocation(ctx, region)
		if err != nil {
			return fmt.Errorf("dim location: %w", err)
		}
		statusID, err := wh.EnsureStatus(ctx, ev.Status)
		if err != nil {
			return fmt.Errorf("dim status: %w", err)
		}
		timeID, err := wh.EnsureTime(ctx, time.Unix(ev.CreatedAt, 0).In(l.Loc))
		if err != nil {
			return fmt.Errorf("dim time: %w", err)
		}
		if err := wh.InsertOrder(ctx, ev.OrderID, ev.OrderPublicID); err != nil {
			return fmt.Errorf("dim order: %w", err)
		}
		for _, line := range ev.Lines {
			if err := wh.EnsureProduct(ctx, line.ProductID, line.Name, line.Price); err != nil {
				return fmt.Errorf("dim product: %w", err)
			}
			if _, err := wh.InsertFact(ctx, repository.Fact{
				OrderID:     ev.OrderID,
				ProductID:   line.ProductID,
				UserID:      ev.UserID,
				LocationID:  locationID,
				StatusID:    statusID,
				TimeID:      timeID,
				SalesAmount: line.Price,
				Metadata:    ev.Metadata,
			}); err != nil {
				return fmt.Errorf("fact: %w", err)
			}
		}
		loaded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return loaded, nil
}

// LoadFailure classifies an error returned by Load for the consumer.
// Constraint violations fail the same way on every redelivery and are
// marked as queue.ErrBadEvent; anything else is returned unchanged.
func LoadFailure(err error) error {
	var bad *repository.BadRequestError
	var conflict *repository.ConflictError
	if errors.As(err, &bad) || errors.As(err, &conflict) {
		return fmt.Errorf("%w: %v", queue.ErrBadEvent, err)
	}
	return err
}

// ProductRevenue is one row of the warehouse revenue report: the summed
// sales of a product and the number of fact rows behind it.
type ProductRevenue struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int64           `json:"orders"`
}

// RegionOrders ranks a region by the number of order lines placed from it.
type RegionOrders struct {
	ID     int64  `json:"id"`
	Region string `json:"region"`
	Orders int64  `json:"orders"`
}

// TimelinePoint is the sales total of one day.
type TimelinePoint struct {
	Date  string          `json:"date"`
	Sales decimal.Decimal `json:"sales"`
}

// WarehouseReports reads the star schema.  Ranges are unix seconds and are
// mapped onto DimTime keys in Loc.  Without a range every report covers
// the last three months.
type WarehouseReports struct {
	Store repository.Storage
	Loc   *time.Location
	Now   func() time.Time
}

func NewWarehouseReports(store repository.Storage, loc *time.Location) *WarehouseReports {
	if loc == nil {
		loc = time.UTC
	}
	return &WarehouseReports{Store: store, Loc: loc, Now: time.Now}
}

// window converts rng into an inclusive DimTime key range.
func (w *WarehouseReports) window(rng *repository.TimeRange) (repository.TimeRange, error) {
	if rng == nil {
		now := w.Now().In(w.Loc)
		rng = &repository.TimeRange{Start: now.AddDate(0, -3, 0).Unix(), End: now.Unix()}
	}
	if err := checkRange(rng); err != nil {
		return repository.TimeRange{}, err
	}
	return repository.TimeRange{
		Start: repository.TimeID(time.Unix(rng.Start, 0).In(w.Loc)),
		End:   repository.TimeID(time.Unix(rng.End, 0).In(w.Loc)),
	}, nil
}

// RevenueByProduct sums sales per product, largest first.
func (w *WarehouseReports) RevenueByProduct(ctx context.Context, rng *repository.TimeRange) ([]ProductRevenue, error) {
	days, err := w.window(rng)
	if err != nil {
		return nil, err
	}
	rows, err := w.Store.RunAggregate(ctx, repository.Aggregate{
		From:       "FactOrderItems",
		GroupBy:    "product_id",
		Measure:    repository.Sum("sales_amount"),
		TimeColumn: "time_id",
		Range:      &days,
		Desc:       true,
	})
	if err != nil {
		return nil, err
	}
	names, err := repository.NewWarehouseRepo(w.Store).ProductNames(ctx, aggregateKeys(rows))
	if err != nil {
		return nil, err
	}
	out := make([]ProductRevenue, 0, len(rows))
	for _, row := range rows {
		id := row.KeyInt64()
		out = append(out, ProductRevenue{ID: id, Name: names[id], Revenue: row.Value.Round(2), Orders: row.Count})
	}
	return out, nil
}

// TopRegions counts fact rows per region and keeps the busiest entries
// (DefaultTopRegions when top is 0).
func (w *WarehouseReports) TopRegions(ctx context.Context, top int, rng *repository.TimeRange) ([]RegionOrders, error) {
	if top == 0 {
		top = DefaultTopRegions
	}
	if top < 0 {
		return nil, repository.BadRequest("top must be positive")
	}
	days, err := w.window(rng)
	if err != nil {
		return nil, err
	}
	rows, err := w.Store.RunAggregate(ctx, repository.Aggregate{
		From:       "FactOrderItems",
		GroupBy:    "location_id",
		Measure:    repository.Count(),
		TimeColumn: "time_id",
		Range:      &days,
		OrderBy:    repository.ByCount,
		Desc:       true,
		Limit:      top,
	})
	if err != nil {
		return nil, err
	}
	regions, err := repository.NewWarehouseRepo(w.Store).Regions(ctx, aggregateKeys(rows))
	if err != nil {
		return nil, err
	}
	out := make([]RegionOrders, 0, len(rows))
	for _, row := range rows {
		id := row.KeyInt64()
		out = append(out, RegionOrders{ID: id, Region: regions[id], Orders: row.Count})
	}
	return out, nil
}

// SalesTimeline sums sales per day in ascending date order, labelled
// DD.MM.YYYY.
func (w *WarehouseReports) SalesTimeline(ctx context.Context, rng *repository.TimeRange) ([]TimelinePoint, error) {
	days, err := w.window(rng)
	if err != nil {
		return nil, err
	}
	rows, err := w.Store.RunAggregate(ctx, repository.Aggregate{
		From:       "FactOrderItems",
		GroupBy:    "time_id",
		Measure:    repository.Sum("sales_amount"),
		TimeColumn: "time_id",
		Range:      &days,
		OrderBy:    repository.ByKey,
	})
	if err != nil {
		return nil, err
	}
	out := make([]TimelinePoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, TimelinePoint{
			Date:  repository.DateOf(row.KeyInt64()).Format("02.01.2006"),
			Sales: row.Value.Round(2),
		})
	}
	return out, nil
}

func aggregateKeys(rows []repository.AggregateRow) []int64 {
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.KeyInt64()
	}
	return ids
}
