package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/senseivictor/baza-de-date/internal/database"
)

// Column is one name/value pair of an INSERT or UPDATE.
type Column struct {
	Name  string
	Value any
}

// Storage is the engine-neutral capability set used by the services.  All
// SQL differences between backends stay behind it.
type Storage interface {
	Dialect() database.Dialect
	Query(ctx context.Context, query string, args ...any) ([]Record, error)
	Exec(ctx context.Context, query string, args ...any) (ExecResult, error)

	// Insert writes one row and returns the generated primary key.
	Insert(ctx context.Context, table, pk string, cols []Column) (int64, error)
	// UpdateByID and DeleteByID return the number of rows matched.
	UpdateByID(ctx context.Context, table, pk string, id int64, cols []Column) (int64, error)
	DeleteByID(ctx context.Context, table, pk string, id int64) (int64, error)
	RunAggregate(ctx context.Context, a Aggregate) ([]AggregateRow, error)

	// Tx runs fn inside one transaction.  It commits when fn returns nil and
	// rolls back when fn returns an error or panics.  Inside fn only the
	// Storage passed in may be used.
	Tx(ctx context.Context, fn func(Storage) error) error
}

// SQLStore implements Storage over database/sql.
type SQLStore struct {
	exec *Executor
}

// NewStore returns a Storage for db speaking dialect d.
func NewStore(db *sql.DB, d database.Dialect) *SQLStore {
	return &SQLStore{exec: NewExecutor(db, d)}
}

func (s *SQLStore) Dialect() database.Dialect { return s.exec.Dialect }

func (s *SQLStore) Query(ctx context.Context, query string, args ...any) ([]Record, error) {
	return s.exec.Query(ctx, query, args...)
}

func (s *SQLStore) Exec(ctx context.Context, query string, args ...any) (ExecResult, error) {
	return s.exec.Exec(ctx, query, args...)
}

func (s *SQLStore) Insert(ctx context.Context, table, pk string, cols []Column) (int64, error) {
	if len(cols) == 0 {
		return 0, BadRequest("no fields to insert into %s", table)
	}
	d := s.exec.Dialect
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		names[i] = d.Quote(c.Name)
		marks[i] = "?"
		args[i] = c.Value
	}

	if d.InsertOutput() {
		q := fmt.Sprintf("INSERT INTO %s (%s) OUTPUT INSERTED.%s AS id VALUES (%s)",
			d.Quote(table), strings.Join(names, ", "), d.Quote(pk), strings.Join(marks, ", "))
		rows, err := s.exec.Query(ctx, q, args...)
		if err != nil {
			return 0, err
		}
		if len(rows) == 0 {
			return 0, &QueryError{Msg: "insert into " + table + " returned no key"}
		}
		return rows[0].Int64("id"), nil
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), strings.Join(names, ", "), strings.Join(marks, ", "))
	res, err := s.exec.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertID, nil
}

func (s *SQLStore) UpdateByID(ctx context.Context, table, pk string, id int64, cols []Column) (int64, error) {
	if len(cols) == 0 {
		return 0, BadRequest("no fields to update in %s", table)
	}
	d := s.exec.Dialect
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = d.Quote(c.Name) + " = ?"
		args = append(args, c.Value)
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", d.Quote(table), strings.Join(sets, ", "), d.Quote(pk))
	res, err := s.exec.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

func (s *SQLStore) DeleteByID(ctx context.Context, table, pk string, id int64) (int64, error) {
	d := s.exec.Dialect
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", d.Quote(table), d.Quote(pk))
	res, err := s.exec.Exec(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

func (s *SQLStore) Tx(ctx context.Context, fn func(Storage) error) error {
	// already inside a transaction: join it
	if s.exec.tx != nil {
		return fn(s)
	}
	tx, err := s.exec.DB.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	inner := &SQLStore{exec: &Executor{DB: s.exec.DB, Dialect: s.exec.Dialect, tx: tx}}
	if err := fn(inner); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// Nullable turns a nil pointer into a SQL NULL argument and dereferences
// any other pointer.
func Nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
