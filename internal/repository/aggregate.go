package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Measure is the aggregated expression of an Aggregate.
type Measure struct {
	fn  string
	col string
}

// Count counts rows per group.
func Count() Measure { return Measure{fn: "COUNT", col: "*"} }

// Sum adds up col per group.
func Sum(col string) Measure { return Measure{fn: "SUM", col: col} }

func (m Measure) expr() string {
	if m.fn == "" {
		return "COUNT(*)"
	}
	return m.fn + "(" + m.col + ")"
}

// Cond is a column comparison in the WHERE clause.
type Cond struct {
	Column string
	Op     string
	Value  any
}

// Eq is shorthand for an equality condition.
func Eq(col string, v any) Cond { return Cond{Column: col, Op: "=", Value: v} }

// TimeRange bounds a query by unix seconds, both ends inclusive.
type TimeRange struct {
	Start int64
	End   int64
}

// OrderBy selects the sort column of an aggregate.
type OrderBy int

const (
	ByValue OrderBy = iota
	ByKey
	ByCount
)

// Aggregate describes a single grouped query:
//
//	SELECT GroupBy, Measure, COUNT(*) FROM From Joins WHERE ... GROUP BY GroupBy
//
// From, Joins, GroupBy and column names are fixed strings chosen by the
// caller; only Where values and Range are bound as parameters.
type Aggregate struct {
	From       string
	Joins      []string
	GroupBy    string
	Measure    Measure
	Where      []Cond
	NotNull    []string
	TimeColumn string
	Range      *TimeRange
	OrderBy    OrderBy
	Desc       bool
	Limit      int
}

// AggregateRow is one group.  Key is the normalised group value (int64 or
// string), Value the measure and Count the number of rows in the group.
type AggregateRow struct {
	Key   any
	Value decimal.Decimal
	Count int64
}

// KeyInt64 returns Key as an integer when it is one.
func (r AggregateRow) KeyInt64() int64 {
	n, _ := toInt64(r.Key)
	return n
}

// KeyString returns Key formatted as text.
func (r AggregateRow) KeyString() string {
	return Record{"k": r.Key}.String("k")
}

var validOps = map[string]bool{"=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true}

// buildAggregate renders the aggregate as a '?'-parameterised query for the dialect.
func (s *SQLStore) buildAggregate(a Aggregate) (string, []any, error) {
	if a.From == "" || a.GroupBy == "" {
		return "", nil, fmt.Errorf("aggregate needs From and GroupBy")
	}
	d := s.exec.Dialect

	var where []string
	var args []any
	for _, c := range a.Where {
		if !validOps[c.Op] {
			return "", nil, fmt.Errorf("aggregate: unsupported operator %q", c.Op)
		}
		where = append(where, c.Column+" "+c.Op+" ?")
		args = append(args, c.Value)
	}
	for _, col := range a.NotNull {
		where = append(where, col+" IS NOT NULL")
	}
	if a.Range != nil && a.TimeColumn != "" {
		where = append(where, a.TimeColumn+" BETWEEN ? AND ?")
		args = append(args, a.Range.Start, a.Range.End)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(d.Top(a.Limit))
	fmt.Fprintf(&b, "%s AS agg_key, %s AS agg_value, COUNT(*) AS agg_count FROM %s",
		a.GroupBy, a.Measure.expr(), a.From)
	for _, j := range a.Joins {
		b.WriteString(" ")
		b.WriteString(j)
	}
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" GROUP BY ")
	b.WriteString(a.GroupBy)

	dir := " ASC"
	if a.Desc {
		dir = " DESC"
	}
	switch a.OrderBy {
	case ByKey:
		b.WriteString(" ORDER BY agg_key" + dir)
	case ByCount:
		b.WriteString(" ORDER BY agg_count" + dir + ", agg_key ASC")
	default:
		b.WriteString(" ORDER BY agg_value" + dir + ", agg_key ASC")
	}
	b.WriteString(d.Limit(a.Limit))
	return b.String(), args, nil
}

// RunAggregate executes a and returns one row per group in the requested
// order.  Groups with a NULL measure report zero.
func (s *SQLStore) RunAggregate(ctx context.Context, a Aggregate) ([]AggregateRow, error) {
	q, args, err := s.buildAggregate(a)
	if err != nil {
		return nil, err
	}
	rows, err := s.exec.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := make([]AggregateRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, AggregateRow{
			Key:   r["agg_key"],
			Value: r.Decimal("agg_value"),
			Count: r.Int64("agg_count"),
		})
	}
	return out, nil
}
