package database

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"mysql", MySQL, false},
		{"SQLite", SQLite, false},
		{"sqlite3", SQLite, false},
		{"mssql", SQLServer, false},
		{" sqlserver ", SQLServer, false},
		{"postgres", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM orders WHERE user_id = ? AND order_status = '?' AND created_at >= ?"
	assert.Equal(t, q, MySQL.Rebind(q))
	assert.Equal(t, q, SQLite.Rebind(q))
	assert.Equal(t,
		"SELECT * FROM orders WHERE user_id = @p1 AND order_status = '?' AND created_at >= @p2",
		SQLServer.Rebind(q))
}

func TestQuoteTopLimit(t *testing.T) {
	assert.Equal(t, "`orders`", MySQL.Quote("orders"))
	assert.Equal(t, "[orders]", SQLServer.Quote("orders"))
	assert.Equal(t, `"orders"`, SQLite.Quote("orders"))
	assert.Equal(t, `"a""b"`, SQLite.Quote(`a"b`))

	assert.Equal(t, "TOP (5) ", SQLServer.Top(5))
	assert.Equal(t, "", MySQL.Top(5))
	assert.Equal(t, " LIMIT 5", MySQL.Limit(5))
	assert.Equal(t, "", SQLServer.Limit(5))
	assert.Equal(t, "", SQLite.Limit(0))
	assert.True(t, SQLServer.InsertOutput())
	assert.False(t, MySQL.InsertOutput())
}

func TestBuildDSN(t *testing.T) {
	my := BuildDSN(Options{Dialect: MySQL, User: "app", Pass: "secret", Host: "db", Port: "3306", Name: "shop"})
	assert.True(t, strings.HasPrefix(my, "app:secret@tcp(db:3306)/shop?"), my)
	assert.Contains(t, my, "parseTime=true")
	assert.Contains(t, my, "clientFoundRows=true")

	ms := BuildDSN(Options{Dialect: SQLServer, User: "sa", Pass: "pw", Host: "localhost", Port: "1433", Name: "victor_dwh"})
	assert.Equal(t, "sqlserver://sa:pw@localhost:1433?database=victor_dwh", ms)

	assert.Equal(t, "file:shop.db?_foreign_keys=on&_busy_timeout=5000", BuildDSN(Options{Dialect: SQLite, Name: "shop.db"}))
	assert.Equal(t, "explicit", BuildDSN(Options{Dialect: MySQL, DSN: "explicit"}))
}

func TestEnsureSchemaIsIdempotentAndSeeds(t *testing.T) {
	db, err := OpenMemory(t.Name())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, db, SQLite))

	added, err := SeedProducts(ctx, db, SQLite, DefaultProducts)
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	added, err = SeedProducts(ctx, db, SQLite, DefaultProducts)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM products").Scan(&n))
	assert.Equal(t, 3, n)

	for _, table := range []string{"users", "orders", "order_products", "DimUser", "DimProduct",
		"DimLocation", "DimStatus", "DimTime", "DimOrder", "FactOrderItems"} {
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n), table)
	}
}
