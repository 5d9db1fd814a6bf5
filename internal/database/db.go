package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
)

// Options describe how to reach a backend.  DSN, when set, wins over the
// individual fields.
type Options struct {
	Dialect Dialect
	DSN     string
	User    string
	Pass    string
	Host    string
	Port    string
	Name    string
}

// BuildDSN turns Options into a driver-specific data source name.
func BuildDSN(o Options) string {
	if o.DSN != "" {
		return o.DSN
	}
	switch o.Dialect {
	case MySQL:
		cfg := mysql.NewConfig()
		cfg.User = o.User
		cfg.Passwd = o.Pass
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(o.Host, o.Port)
		cfg.DBName = o.Name
		// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		// report matched rows so an UPDATE with unchanged values is not a miss
		cfg.ClientFoundRows = true
		cfg.Params = map[string]string{"charset": "utf8mb4"}
		return cfg.FormatDSN()
	case SQLServer:
		u := &url.URL{
			Scheme: "sqlserver",
			Host:   net.JoinHostPort(o.Host, o.Port),
		}
		if o.User != "" {
			u.User = url.UserPassword(o.User, o.Pass)
		}
		q := url.Values{}
		q.Set("database", o.Name)
		u.RawQuery = q.Encode()
		return u.String()
	default:
		switch o.Name {
		case ":memory:":
			return "file:baza?mode=memory&cache=shared&_foreign_keys=on"
		case "":
			return "file:baza.db?_foreign_keys=on&_busy_timeout=5000"
		}
		return "file:" + o.Name + "?_foreign_keys=on&_busy_timeout=5000"
	}
}

// Open connects to the configured backend and verifies the connection.
func Open(o Options) (*sql.DB, error) {
	db, err := sql.Open(string(o.Dialect), BuildDSN(o))
	if err != nil {
		return nil, err
	}

	// Pool settings
	if o.Dialect == SQLite {
		// one writer; also keeps a shared in-memory database alive
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", o.Dialect, err)
	}
	return db, nil
}

// OpenMemory opens a private in-memory SQLite database with the full schema
// applied.  Each distinct name gets its own database.
func OpenMemory(name string) (*sql.DB, error) {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	db, err := Open(Options{
		Dialect: SQLite,
		DSN:     "file:" + name + "?mode=memory&cache=shared&_foreign_keys=on",
	})
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(context.Background(), db, SQLite); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
