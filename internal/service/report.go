package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/senseivictor/baza-de-date/internal/repository"
)

const (
	// DefaultDays is the window of the per-day reports.
	DefaultDays = 7
	// MaxDays bounds any per-day window.
	MaxDays = 366
)

// DailyCounts is one count per calendar day, oldest first, zero-filled.
type DailyCounts struct {
	Dates  []string `json:"dates"`
	Counts []int64  `json:"counts"`
}

// StatusShare is one row of the order status breakdown.
type StatusShare struct {
	Status  string  `json:"status"`
	Count   int64   `json:"count"`
	Percent float64 `json:"percent"`
}

// ProductStat is one row of the product popularity ranking.
type ProductStat struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Orders    int64           `json:"orders"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// UserStat is one row of the top users ranking.
type UserStat struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Orders int64  `json:"orders"`
}

// TierEntry is a ranked entity with its tier label.
type TierEntry struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
	Tier  string          `json:"tier"`
}

// Tier labels.
const (
	TierTop     = "top"
	TierAverage = "average"
	TierLow     = "low"
)

// ReportService runs the fixed aggregate reports over orders, users and
// products.  Calendar days are computed in Loc.
type ReportService struct {
	Store repository.Storage
	Loc   *time.Location
	Now   func() time.Time
}

func NewReportService(store repository.Storage, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{Store: store, Loc: loc, Now: time.Now}
}

// OrdersPerDay counts orders per day.  With rng the window runs from the
// day of rng.Start to the day of rng.End; otherwise it is the last days
// days ending today (DefaultDays when days is 0).
func (r *ReportService) OrdersPerDay(ctx context.Context, days int, rng *repository.TimeRange) (DailyCounts, error) {
	return r.perDay(ctx, "orders", days, rng)
}

// NewUsersPerDay counts user registrations per day, see OrdersPerDay.
func (r *ReportService) NewUsersPerDay(ctx context.Context, days int, rng *repository.TimeRange) (DailyCounts, error) {
	return r.perDay(ctx, "users", days, rng)
}

func (r *ReportService) perDay(ctx context.Context, table string, days int, rng *repository.TimeRange) (DailyCounts, error) {
	first, n, bounds, err := r.window(days, rng)
	if err != nil {
		return DailyCounts{}, err
	}
	rows, err := r.Store.RunAggregate(ctx, repository.Aggregate{
		From:       table,
		GroupBy:    "created_at",
		Measure:    repository.Count(),
		TimeColumn: "created_at",
		Range:      &bounds,
		OrderBy:    repository.ByKey,
	})
	if err != nil {
		return DailyCounts{}, err
	}

	out := DailyCounts{Dates: make([]string, n), Counts: make([]int64, n)}
	index := make(map[string]int, n)
	for i := 0; i < n; i++ {
		d := first.AddDate(0, 0, i).Format("2006-01-02")
		out.Dates[i] = d
		index[d] = i
	}
	for _, row := range rows {
		d := time.Unix(row.KeyInt64(), 0).In(r.Loc).Format("2006-01-02")
		if i, ok := index[d]; ok {
			out.Counts[i] += row.Count
		}
	}
	return out, nil
}

// window resolves the day list and the inclusive unix-second bounds of a
// per-day report.
func (r *ReportService) window(days int, rng *repository.TimeRange) (first time.Time, n int, bounds repository.TimeRange, err error) {
	if rng != nil {
		if err := checkRange(rng); err != nil {
			return time.Time{}, 0, bounds, err
		}
		first = midnight(time.Unix(rng.Start, 0).In(r.Loc))
		last := midnight(time.Unix(rng.End, 0).In(r.Loc))
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			n++
			if n > MaxDays {
				return time.Time{}, 0, bounds, repository.BadRequest("range spans more than %d days", MaxDays)
			}
		}
		return first, n, *rng, nil
	}

	if days == 0 {
		days = DefaultDays
	}
	if days < 1 || days > MaxDays {
		return time.Time{}, 0, bounds, repository.BadRequest("days must be between 1 and %d", MaxDays)
	}
	today := midnight(r.Now().In(r.Loc))
	first = today.AddDate(0, 0, -(days - 1))
	end := today.AddDate(0, 0, 1).Unix() - 1
	return first, days, repository.TimeRange{Start: first.Unix(), End: end}, nil
}

func checkRange(rng *repository.TimeRange) error {
	if rng != nil && rng.Start > rng.End {
		return repository.BadRequest("start must not be after end")
	}
	return nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StatusBreakdown counts orders per status, largest first, with each
// status' share of the total in percent rounded to two decimals.
func (r *ReportService) StatusBreakdown(ctx context.Context, rng *repository.TimeRange) ([]StatusShare, error) {
	if err := checkRange(rng); err != nil {
		return nil, err
	}
	rows, err := r.Store.RunAggregate(ctx, repository.Aggregate{
		From:       "orders",
		GroupBy:    "order_status",
		Measure:    repository.Count(),
		TimeColumn: "created_at",
		Range:      rng,
		Desc:       true,
	})
	if err != nil {
		return nil, err
	}
	var total int64
	for _, row := range rows {
		total += row.Count
	}
	out := make([]StatusShare, 0, len(rows))
	for _, row := range rows {
		pct := decimal.NewFromInt(row.Count * 100).Div(decimal.NewFromInt(total)).Round(2)
		out = append(out, StatusShare{Status: row.KeyString(), Count: row.Count, Percent: pct.InexactFloat64()})
	}
	return out, nil
}

// ProductPopularity ranks products by the number of order lines that
// reference them, with the revenue of those lines.  top <= 0 means all.
func (r *ReportService) ProductPopularity(ctx context.Context, top int, rng *repository.TimeRange) ([]ProductStat, error) {
	rows, err := r.productLines(ctx, repository.ByCount, top, rng)
	if err != nil {
		return nil, err
	}
	return r.productStats(ctx, rows)
}

// RevenueByProduct ranks products by revenue, largest first.
func (r *ReportService) RevenueByProduct(ctx context.Context, rng *repository.TimeRange) ([]ProductStat, error) {
	rows, err := r.productLines(ctx, repository.ByValue, 0, rng)
	if err != nil {
		return nil, err
	}
	return r.productStats(ctx, rows)
}

func (r *ReportService) productLines(ctx context.Context, by repository.OrderBy, top int, rng *repository.TimeRange) ([]repository.AggregateRow, error) {
	if err := checkRange(rng); err != nil {
		return nil, err
	}
	return r.Store.RunAggregate(ctx, repository.Aggregate{
		From: "order_products op",
		Joins: []string{
			"JOIN orders o ON o.order_id = op.order_id",
			"JOIN products p ON p.product_id = op.product_id",
		},
		GroupBy:    "op.product_id",
		Measure:    repository.Sum("p.price"),
		TimeColumn: "o.created_at",
		Range:      rng,
		OrderBy:    by,
		Desc:       true,
		Limit:      top,
	})
}

func (r *ReportService) productStats(ctx context.Context, rows []repository.AggregateRow) ([]ProductStat, error) {
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.KeyInt64()
	}
	products, err := repository.NewProductRepo(r.Store).Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ProductStat, 0, len(rows))
	for i, row := range rows {
		out = append(out, ProductStat{
			ProductID: ids[i],
			Name:      products[ids[i]].Name,
			Orders:    row.Count,
			Revenue:   row.Value.Round(2),
		})
	}
	return out, nil
}

// TopUsers ranks registered users by order count.  Guest orders are not
// counted.  top <= 0 means all.
func (r *ReportService) TopUsers(ctx context.Context, top int, rng *repository.TimeRange) ([]UserStat, error) {
	if err := checkRange(rng); err != nil {
		return nil, err
	}
	rows, err := r.Store.RunAggregate(ctx, repository.Aggregate{
		From:       "orders",
		GroupBy:    "user_id",
		Measure:    repository.Count(),
		NotNull:    []string{"user_id"},
		TimeColumn: "created_at",
		Range:      rng,
		Desc:       true,
		Limit:      top,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.KeyInt64()
	}
	names, err := repository.NewUserRepo(r.Store).Names(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]UserStat, 0, len(rows))
	for i, row := range rows {
		out = append(out, UserStat{UserID: ids[i], Name: names[ids[i]], Orders: row.Count})
	}
	return out, nil
}

// ProductTiers labels every product by its revenue.
func (r *ReportService) ProductTiers(ctx context.Context, rng *repository.TimeRange) ([]TierEntry, error) {
	stats, err := r.RevenueByProduct(ctx, rng)
	if err != nil {
		return nil, err
	}
	values := make([]decimal.Decimal, len(stats))
	for i, s := range stats {
		values[i] = s.Revenue
	}
	tiers := ClassifyTiers(values)
	out := make([]TierEntry, len(stats))
	for i, s := range stats {
		out[i] = TierEntry{Name: s.Name, Value: s.Revenue, Tier: tiers[i]}
	}
	return out, nil
}

// ClassifyTiers labels each value "top" when it reaches the midpoint
// between the mean and the maximum, "average" when it reaches the mean and
// "low" otherwise.
func ClassifyTiers(values []decimal.Decimal) []string {
	out := make([]string, len(values))
	if len(values) == 0 {
		return out
	}
	mean := decimal.Avg(values[0], values[1:]...)
	topCut := mean.Add(decimal.Max(values[0], values[1:]...)).Div(decimal.NewFromInt(2))
	for i, v := range values {
		switch {
		case v.GreaterThanOrEqual(topCut):
			out[i] = TierTop
		case v.GreaterThanOrEqual(mean):
			out[i] = TierAverage
		default:
			out[i] = TierLow
		}
	}
	return out
}
