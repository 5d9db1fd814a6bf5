package main // Entry point of the HTTP API

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"

	"github.com/senseivictor/baza-de-date/internal/config"
	"github.com/senseivictor/baza-de-date/internal/database"
	"github.com/senseivictor/baza-de-date/internal/handler"
	mw "github.com/senseivictor/baza-de-date/internal/middleware"
	"github.com/senseivictor/baza-de-date/internal/repository"
	"github.com/senseivictor/baza-de-date/internal/router"
	"github.com/senseivictor/baza-de-date/internal/service"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Open(cfg.Database())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	store := repository.NewStore(db, cfg.Dialect())

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				c.Logger().Infof("%s %s %d %s ip=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP, v.Error)
				return nil
			}
			c.Logger().Infof("%s %s %d %s ip=%s", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{Timeout: cfg.RequestTimeout}))
	}

	// Redis is optional: without it cache and rate limit pass requests through
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		log.Fatalf("redis config: %v", err)
	}
	rdb := config.NewRedisClient(redisCfg)
	if rdb == nil {
		log.Printf("redis unavailable at %s; cache and rate limit disabled", redisCfg.Addr)
	} else {
		defer rdb.Close()
	}
	e.Use(mw.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cache := mw.NewRedisCache(config.LoadCacheConfig(), rdb)

	var events service.EventPublisher
	if cfg.OrderEvents {
		pub := service.NewAMQPPublisher(cfg.RabbitURL, cfg.OrderExchange)
		defer pub.Close()
		events = pub
	}

	orders := handler.NewOrderHandler(
		service.NewOrderService(store, events),
		service.NewUserService(store, cfg.BcryptCost),
	)
	crud := handler.NewCrudHandler(service.NewDispatcher(store, cfg.BcryptCost))
	stats := handler.NewStatsHandler(
		service.NewReportService(store, cfg.Location()),
		service.NewWarehouseReports(store, cfg.Location()),
	)

	router.RegisterRoutes(e, db)
	router.RegisterOrders(e, orders)
	router.RegisterAdmin(e, orders, crud, stats, cache)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, db=%s, events=%t)", addr, cfg.Env, cfg.Dialect(), cfg.OrderEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Printf("server stopped")
}

func logLevel(s string) glog.Lvl {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return glog.DEBUG
	case "warn", "warning":
		return glog.WARN
	case "error":
		return glog.ERROR
	case "off":
		return glog.OFF
	}
	return glog.INFO
}
