package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/senseivictor/baza-de-date/internal/database"
)

// ExecResult is what a write statement reports back.
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64
}

// querier is satisfied by both *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Executor runs single statements.  Outside a transaction every call takes
// a dedicated connection from the pool and hands it back before returning,
// on success and on error alike.  Queries are written with '?' markers and
// rebound for the dialect.
type Executor struct {
	DB      *sql.DB
	Dialect database.Dialect
	tx      *sql.Tx
}

// NewExecutor returns an Executor bound to db.
func NewExecutor(db *sql.DB, d database.Dialect) *Executor {
	return &Executor{DB: db, Dialect: d}
}

func (e *Executor) with(ctx context.Context, fn func(querier) error) error {
	if e.tx != nil {
		return fn(e.tx)
	}
	conn, err := e.DB.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// Query runs a read statement and materialises every row as a Record, in
// the order the database returned them.  No rows yields an empty slice.
func (e *Executor) Query(ctx context.Context, query string, args ...any) ([]Record, error) {
	out := []Record{}
	err := e.with(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, e.Dialect.Rebind(query), args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		cols, err := rows.ColumnTypes()
		if err != nil {
			return err
		}
		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			rec := make(Record, len(cols))
			for i, c := range cols {
				rec[c.Name()] = normalize(vals[i], c.DatabaseTypeName())
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// Exec runs a write statement.  LastInsertID is left at zero when the
// driver cannot report one (SQL Server).
func (e *Executor) Exec(ctx context.Context, query string, args ...any) (ExecResult, error) {
	var res ExecResult
	err := e.with(ctx, func(q querier) error {
		r, err := q.ExecContext(ctx, e.Dialect.Rebind(query), args...)
		if err != nil {
			return err
		}
		if res.RowsAffected, err = r.RowsAffected(); err != nil {
			return err
		}
		if e.Dialect != database.SQLServer {
			res.LastInsertID, _ = r.LastInsertId()
		}
		return nil
	})
	if err != nil {
		return ExecResult{}, classify(err)
	}
	return res, nil
}

// normalize converts the raw []byte some drivers return for numeric and
// text columns into int64, float64 or string based on the column type.
func normalize(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	s := string(b)
	t := strings.ToUpper(dbType)
	switch {
	case strings.Contains(t, "INT"):
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case t == "FLOAT" || t == "DOUBLE" || t == "REAL":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
