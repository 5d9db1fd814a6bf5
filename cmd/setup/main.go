// Command setup creates the schema of the configured backend, including
// the warehouse star schema, and seeds the default products.  It is safe to
// run repeatedly.
package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/senseivictor/baza-de-date/internal/config"
	"github.com/senseivictor/baza-de-date/internal/database"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := database.Open(cfg.Database())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := database.EnsureSchema(ctx, db, cfg.Dialect()); err != nil {
		log.Fatalf("schema: %v", err)
	}
	n, err := database.SeedProducts(ctx, db, cfg.Dialect(), database.DefaultProducts)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("schema ready on %s; %d product(s) seeded", cfg.Dialect(), n)
}
