package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect names one of the supported relational backends.  Its value is
// also the database/sql driver name registered for that backend.
type Dialect string

const (
	MySQL     Dialect = "mysql"
	SQLite    Dialect = "sqlite3"
	SQLServer Dialect = "sqlserver"
)

// ParseDialect maps a configured driver name onto a Dialect.  A few common
// aliases are accepted so that DB_DRIVER=mssql or DB_DRIVER=sqlite work.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", s)
}

// Placeholder returns the bind marker for the n-th (1-based) parameter.
func (d Dialect) Placeholder(n int) string {
	if d == SQLServer {
		return "@p" + strconv.Itoa(n)
	}
	return "?"
}

// Rebind rewrites a query written with '?' markers into the dialect's
// placeholder syntax.  Question marks inside single-quoted literals are kept.
func (d Dialect) Rebind(query string) string {
	if d != SQLServer || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inQuote = !inQuote
			b.WriteByte(ch)
		case ch == '?' && !inQuote:
			n++
			b.WriteString(d.Placeholder(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// Quote escapes an identifier for the dialect.
func (d Dialect) Quote(ident string) string {
	switch d {
	case MySQL:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	case SQLServer:
		return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
}

// Top returns the "TOP (n) " prefix SQL Server expects right after SELECT.
// Other dialects return an empty string and use Limit instead.
func (d Dialect) Top(n int) string {
	if d != SQLServer || n <= 0 {
		return ""
	}
	return fmt.Sprintf("TOP (%d) ", n)
}

// Limit returns the trailing " LIMIT n" clause, empty for SQL Server.
func (d Dialect) Limit(n int) string {
	if d == SQLServer || n <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", n)
}

// InsertOutput reports whether generated keys are read back through an
// OUTPUT INSERTED clause instead of sql.Result.LastInsertId.
func (d Dialect) InsertOutput() bool { return d == SQLServer }
