// Package repository holds the query executor, the Storage abstraction
// and the error kinds shared by every repository.  Handlers use the kinds
// to pick an HTTP status: BadRequestError becomes 400, NotFoundError 404,
// ConflictError 409, ConnectionError 503 and QueryError 500.
package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
)

// BadRequestError is returned for missing or invalid caller input, such as
// an absent primary key or a reference to a row that does not exist.
type BadRequestError struct {
	Msg string
	Err error
}

func (e *BadRequestError) Error() string { return e.Msg }
func (e *BadRequestError) Unwrap() error { return e.Err }

// NotFoundError is returned for unknown tables or actions and when an
// update or delete matches no row.
type NotFoundError struct{ Msg string }

func (e *NotFoundError) Error() string { return e.Msg }

// ConflictError signals a unique-constraint violation.
type ConflictError struct {
	Msg string
	Err error
}

func (e *ConflictError) Error() string { return e.Msg }
func (e *ConflictError) Unwrap() error { return e.Err }

// QueryError is a statement the database rejected.  Code is the driver's
// numeric error code when one is available.
type QueryError struct {
	Code int
	Msg  string
	Err  error
}

func (e *QueryError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("query failed (code %d): %s", e.Code, e.Msg)
	}
	return "query failed: " + e.Msg
}
func (e *QueryError) Unwrap() error { return e.Err }

// ConnectionError reports that the database could not be reached or the
// connection was lost mid-statement.
type ConnectionError struct{ Err error }

func (e *ConnectionError) Error() string { return "database unavailable" }
func (e *ConnectionError) Unwrap() error { return e.Err }

// BadRequest builds a BadRequestError from a format string.
func BadRequest(format string, args ...any) error {
	return &BadRequestError{Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a NotFoundError from a format string.
func NotFound(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// classify turns a driver error into one of the kinds above.  Errors that
// already carry a kind are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var (
		br *BadRequestError
		nf *NotFoundError
		cf *ConflictError
		qe *QueryError
		ce *ConnectionError
	)
	if errors.As(err, &br) || errors.As(err, &nf) || errors.As(err, &cf) ||
		errors.As(err, &qe) || errors.As(err, &ce) {
		return err
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ConnectionError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ConnectionError{Err: err}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return &ConflictError{Msg: "duplicate value violates a unique constraint", Err: err}
		case 1451, 1452:
			return &BadRequestError{Msg: "references a missing row or is still referenced", Err: err}
		}
		return &QueryError{Code: int(myErr.Number), Msg: myErr.Message, Err: err}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return &ConflictError{Msg: "duplicate value violates a unique constraint", Err: err}
		case sqlite3.ErrConstraintForeignKey:
			return &BadRequestError{Msg: "references a missing row or is still referenced", Err: err}
		}
		return &QueryError{Code: int(liteErr.ExtendedCode), Msg: liteErr.Error(), Err: err}
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		switch msErr.Number {
		case 2627, 2601:
			return &ConflictError{Msg: "duplicate value violates a unique constraint", Err: err}
		case 547:
			return &BadRequestError{Msg: "references a missing row or is still referenced", Err: err}
		}
		return &QueryError{Code: int(msErr.Number), Msg: msErr.Message, Err: err}
	}

	return &QueryError{Msg: err.Error(), Err: err}
}
