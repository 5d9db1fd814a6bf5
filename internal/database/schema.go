package database

import (
	"context"
	"database/sql"
	"fmt"
)

// SeedProduct is one row of the static product catalogue.
type SeedProduct struct {
	Name  string
	Price string
}

// DefaultProducts is the catalogue inserted by SeedProducts.
var DefaultProducts = []SeedProduct{
	{Name: "Caricature", Price: "29.99"},
	{Name: "Voiceover", Price: "49.99"},
	{Name: "Song", Price: "79.99"},
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		email TEXT UNIQUE,
		password_hash TEXT,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		price DECIMAL(10,2) NOT NULL,
		brand TEXT,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_public_id TEXT NOT NULL UNIQUE,
		user_id INTEGER REFERENCES users(user_id),
		order_status TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id)`,
	`CREATE TABLE IF NOT EXISTS order_products (
		order_id INTEGER NOT NULL REFERENCES orders(order_id),
		position INTEGER NOT NULL,
		product_id INTEGER NOT NULL REFERENCES products(product_id),
		PRIMARY KEY (order_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS DimUser (
		user_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS DimProduct (
		product_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		price DECIMAL(10,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS DimLocation (
		location_id INTEGER PRIMARY KEY AUTOINCREMENT,
		region TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS DimStatus (
		status_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS DimTime (
		time_id INTEGER PRIMARY KEY,
		full_date TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS DimOrder (
		order_id INTEGER PRIMARY KEY,
		order_public_id TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS FactOrderItems (
		fact_id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL REFERENCES DimOrder(order_id),
		product_id INTEGER NOT NULL REFERENCES DimProduct(product_id),
		user_id INTEGER REFERENCES DimUser(user_id),
		location_id INTEGER NOT NULL REFERENCES DimLocation(location_id),
		status_id INTEGER NOT NULL REFERENCES DimStatus(status_id),
		time_id INTEGER NOT NULL REFERENCES DimTime(time_id),
		sales_amount DECIMAL(10,2) NOT NULL,
		metadata TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fact_time ON FactOrderItems(time_id)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		email VARCHAR(255) NULL UNIQUE,
		password_hash VARCHAR(255) NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		price DECIMAL(10,2) NOT NULL,
		brand VARCHAR(255) NULL,
		description TEXT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id INT AUTO_INCREMENT PRIMARY KEY,
		order_public_id VARCHAR(64) NOT NULL UNIQUE,
		user_id INT NULL,
		order_status VARCHAR(64) NOT NULL,
		created_at BIGINT NOT NULL,
		INDEX idx_orders_created_at (created_at),
		FOREIGN KEY (user_id) REFERENCES users(user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_products (
		order_id INT NOT NULL,
		position INT NOT NULL,
		product_id INT NOT NULL,
		PRIMARY KEY (order_id, position),
		FOREIGN KEY (order_id) REFERENCES orders(order_id),
		FOREIGN KEY (product_id) REFERENCES products(product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS DimUser (
		user_id INT PRIMARY KEY,
		name VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS DimProduct (
		product_id INT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(10,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS DimLocation (
		location_id INT AUTO_INCREMENT PRIMARY KEY,
		region VARCHAR(255) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS DimStatus (
		status_id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(64) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS DimTime (
		time_id INT PRIMARY KEY,
		full_date DATE NOT NULL,
		year INT NOT NULL,
		month INT NOT NULL,
		day INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS DimOrder (
		order_id INT PRIMARY KEY,
		order_public_id VARCHAR(64) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS FactOrderItems (
		fact_id INT AUTO_INCREMENT PRIMARY KEY,
		order_id INT NOT NULL,
		product_id INT NOT NULL,
		user_id INT NULL,
		location_id INT NOT NULL,
		status_id INT NOT NULL,
		time_id INT NOT NULL,
		sales_amount DECIMAL(10,2) NOT NULL,
		metadata TEXT NULL,
		INDEX idx_fact_time (time_id),
		FOREIGN KEY (order_id) REFERENCES DimOrder(order_id),
		FOREIGN KEY (product_id) REFERENCES DimProduct(product_id),
		FOREIGN KEY (user_id) REFERENCES DimUser(user_id),
		FOREIGN KEY (location_id) REFERENCES DimLocation(location_id),
		FOREIGN KEY (status_id) REFERENCES DimStatus(status_id),
		FOREIGN KEY (time_id) REFERENCES DimTime(time_id)
	)`,
}

// SQL Server has no CREATE TABLE IF NOT EXISTS; every statement is guarded
// with OBJECT_ID / sys.indexes checks instead.
var sqlserverSchema = []string{
	`IF OBJECT_ID(N'dbo.users', N'U') IS NULL
	CREATE TABLE dbo.users (
		user_id INT IDENTITY(1,1) PRIMARY KEY,
		name NVARCHAR(255) NOT NULL UNIQUE,
		email NVARCHAR(255) NULL,
		password_hash NVARCHAR(255) NULL,
		created_at BIGINT NOT NULL
	)`,
	`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'ux_users_email')
	CREATE UNIQUE INDEX ux_users_email ON dbo.users(email) WHERE email IS NOT NULL`,
	`IF OBJECT_ID(N'dbo.products', N'U') IS NULL
	CREATE TABLE dbo.products (
		product_id INT IDENTITY(1,1) PRIMARY KEY,
		name NVARCHAR(255) NOT NULL UNIQUE,
		price DECIMAL(10,2) NOT NULL,
		brand NVARCHAR(255) NULL,
		description NVARCHAR(MAX) NULL
	)`,
	`IF OBJECT_ID(N'dbo.orders', N'U') IS NULL
	CREATE TABLE dbo.orders (
		order_id INT IDENTITY(1,1) PRIMARY KEY,
		order_public_id NVARCHAR(64) NOT NULL UNIQUE,
		user_id INT NULL FOREIGN KEY REFERENCES dbo.users(user_id),
		order_status NVARCHAR(64) NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'idx_orders_created_at')
	CREATE INDEX idx_orders_created_at ON dbo.orders(created_at)`,
	`IF OBJECT_ID(N'dbo.order_products', N'U') IS NULL
	CREATE TABLE dbo.order_products (
		order_id INT NOT NULL FOREIGN KEY REFERENCES dbo.orders(order_id),
		position INT NOT NULL,
		product_id INT NOT NULL FOREIGN KEY REFERENCES dbo.products(product_id),
		PRIMARY KEY (order_id, position)
	)`,
	`IF OBJECT_ID(N'dbo.DimUser', N'U') IS NULL
	CREATE TABLE dbo.DimUser (
		user_id INT PRIMARY KEY,
		name NVARCHAR(255) NOT NULL
	)`,
	`IF OBJECT_ID(N'dbo.DimProduct', N'U') IS NULL
	CREATE TABLE dbo.DimProduct (
		product_id INT PRIMARY KEY,
		name NVARCHAR(255) NOT NULL,
		price DECIMAL(10,2) NOT NULL
	)`,
	`IF OBJECT_ID(N'dbo.DimLocation', N'U') IS NULL
	CREATE TABLE dbo.DimLocation (
		location_id INT IDENTITY(1,1) PRIMARY KEY,
		region NVARCHAR(255) NOT NULL UNIQUE
	)`,
	`IF OBJECT_ID(N'dbo.DimStatus', N'U') IS NULL
	CREATE TABLE dbo.DimStatus (
		status_id INT IDENTITY(1,1) PRIMARY KEY,
		name NVARCHAR(64) NOT NULL UNIQUE
	)`,
	`IF OBJECT_ID(N'dbo.DimTime', N'U') IS NULL
	CREATE TABLE dbo.DimTime (
		time_id INT PRIMARY KEY,
		full_date DATE NOT NULL,
		year INT NOT NULL,
		month INT NOT NULL,
		day INT NOT NULL
	)`,
	`IF OBJECT_ID(N'dbo.DimOrder', N'U') IS NULL
	CREATE TABLE dbo.DimOrder (
		order_id INT PRIMARY KEY,
		order_public_id NVARCHAR(64) NOT NULL UNIQUE
	)`,
	`IF OBJECT_ID(N'dbo.FactOrderItems', N'U') IS NULL
	CREATE TABLE dbo.FactOrderItems (
		fact_id INT IDENTITY(1,1) PRIMARY KEY,
		order_id INT NOT NULL FOREIGN KEY REFERENCES dbo.DimOrder(order_id),
		product_id INT NOT NULL FOREIGN KEY REFERENCES dbo.DimProduct(product_id),
		user_id INT NULL FOREIGN KEY REFERENCES dbo.DimUser(user_id),
		location_id INT NOT NULL FOREIGN KEY REFERENCES dbo.DimLocation(location_id),
		status_id INT NOT NULL FOREIGN KEY REFERENCES dbo.DimStatus(status_id),
		time_id INT NOT NULL FOREIGN KEY REFERENCES dbo.DimTime(time_id),
		sales_amount DECIMAL(10,2) NOT NULL,
		metadata NVARCHAR(MAX) NULL
	)`,
	`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'idx_fact_time')
	CREATE INDEX idx_fact_time ON dbo.FactOrderItems(time_id)`,
}

// SchemaStatements returns the idempotent DDL for a dialect, in dependency order.
func SchemaStatements(d Dialect) []string {
	switch d {
	case MySQL:
		return mysqlSchema
	case SQLServer:
		return sqlserverSchema
	default:
		return sqliteSchema
	}
}

// EnsureSchema creates every table that does not exist yet.  Statements run
// one at a time because the MySQL driver rejects multi-statement strings.
func EnsureSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	for i, stmt := range SchemaStatements(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

// SeedProducts inserts the default catalogue rows that are missing by name
// and returns how many were added.
func SeedProducts(ctx context.Context, db *sql.DB, d Dialect, products []SeedProduct) (int, error) {
	added := 0
	for _, p := range products {
		var n int
		q := d.Rebind("SELECT COUNT(*) FROM products WHERE name = ?")
		if err := db.QueryRowContext(ctx, q, p.Name).Scan(&n); err != nil {
			return added, fmt.Errorf("check product %q: %w", p.Name, err)
		}
		if n > 0 {
			continue
		}
		ins := d.Rebind("INSERT INTO products (name, price) VALUES (?, ?)")
		if _, err := db.ExecContext(ctx, ins, p.Name, p.Price); err != nil {
			return added, fmt.Errorf("insert product %q: %w", p.Name, err)
		}
		added++
	}
	return added, nil
}
