package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/dumall/reconcile/internal/adapter/collab"
	"github.com/dumall/reconcile/internal/adapter/handler"
	"github.com/dumall/reconcile/internal/adapter/storage"
	"github.com/dumall/reconcile/internal/config"
	"github.com/dumall/reconcile/internal/core/domain"
	"github.com/dumall/reconcile/internal/core/service"
	"github.com/dumall/reconcile/internal/logging"
	"github.com/dumall/reconcile/internal/notify"
	"github.com/dumall/reconcile/internal/port"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persisted store: Redis shared across contexts, or an in-process
	// backend for single-binary runs.
	var store port.Store
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("redis connect failed", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		store = storage.NewRedisStore(rdb)
		log.Info("connected to redis", "addr", cfg.Redis.Addr)
	} else {
		store = storage.NewMemoryBackend().Handle("server")
		log.Info("using in-process store")
	}

	mode := domain.WriteFaithful
	if cfg.WriteMode == "versioned" {
		mode = domain.WriteVersioned
	}

	// Engine wiring.
	catalog := collab.NewStaticCatalog()
	auth := collab.NewSessionStore(store, log)

	inventory := service.NewInventory(store, catalog, log)
	inventory.SetWriteMode(mode)

	orders := service.NewOrders(store, log)
	orders.SetWriteMode(mode)

	cart := service.NewCart(store, inventory, log)
	cart.SetWriteMode(mode)

	bus := notify.New(store, log)
	if err := bus.Start(ctx); err != nil {
		log.Error("purchase bus start failed", "error", err)
		os.Exit(1)
	}
	defer bus.Stop()

	unsubscribe := inventory.Listen(bus)
	defer unsubscribe()

	if err := inventory.Seed(ctx); err != nil {
		log.Error("inventory seed failed", "error", err)
		os.Exit(1)
	}

	checkout := service.NewCheckout(cart, orders, bus, auth, log)
	checkout.SetPaymentDelay(time.Duration(cfg.Checkout.PaymentDelay))
	checkout.SetFailureRate(cfg.Checkout.FailureRate)
	checkout.SetForceSuccess(cfg.Checkout.ForceSuccess)

	// Durable order archive, drained by a worker pool. Failures only log;
	// the store-backed ledger stays authoritative.
	var wg sync.WaitGroup
	if cfg.MySQL.Enabled {
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			log.Error("mysql open failed", "error", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			log.Error("mysql ping failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("connected to mysql")

		archive := storage.NewMySQLArchive(db)
		for i := 0; i < cfg.Workers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				archiveLoop(id, checkout.ArchiveQueue(), archive, log)
			}(i)
		}
		log.Info("started archive workers", "count", cfg.Workers)
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range checkout.ArchiveQueue() {
			}
		}()
	}

	// HTTP surface.
	httpHandler := handler.NewHTTPHandler(store, cart, checkout, inventory, orders, catalog, auth)
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	checkout.Close()
	wg.Wait()

	if rdb != nil {
		rdb.Close()
	}
	log.Info("stopped")
}

func archiveLoop(id int, queue <-chan domain.Order, archive *storage.MySQLArchive, log *slog.Logger) {
	for order := range queue {
		ctx, cancelOrder := context.WithTimeout(context.Background(), 5*time.Second)
		if err := archive.SaveOrder(ctx, order); err != nil {
			log.Error("order archive failed", "worker", id, "order_id", order.ID, "error", err)
		} else {
			log.Info("order archived", "worker", id, "order_id", order.ID)
		}
		cancelOrder()
	}
}
