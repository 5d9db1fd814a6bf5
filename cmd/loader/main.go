// Command loader consumes order.placed events from RabbitMQ and writes them
// into the warehouse star schema.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/senseivictor/baza-de-date/internal/config"
	"github.com/senseivictor/baza-de-date/internal/database"
	"github.com/senseivictor/baza-de-date/internal/queue"
	"github.com/senseivictor/baza-de-date/internal/repository"
	"github.com/senseivictor/baza-de-date/internal/service"
)

func main() {
	log.SetPrefix("loader: ")
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

	loader := service.NewWarehouseLoader(repository.NewStore(db, cfg.Dialect()), cfg.Location())
	handle := func(ctx context.Context, ev queue.OrderPlacedEvent) error {
		loaded, err := loader.Load(ctx, ev)
		if err != nil {
			log.Printf("order %s: %v", ev.OrderPublicID, err)
			return service.LoadFailure(err)
		}
		if !loaded {
			log.Printf("order %s already loaded, skipped", ev.OrderPublicID)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Printf("consuming %s from %s", cfg.WarehouseQueue, cfg.OrderExchange)
	err = queue.StartWarehouseConsumer(ctx, queue.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Exchange: cfg.OrderExchange,
		Queue:    cfg.WarehouseQueue,
	}, handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("consumer: %v", err)
	}
	log.Printf("stopped")
}
