/*
main.go - Application entry point

STARTUP SEQUENCE:
  1. Load configuration (.env / environment), apply flag overrides
  2. Build the zap logger
  3. Open the store (PostgreSQL if DATABASE_URL is set, else SQLite)
  4. Wire the event publisher (Kafka if brokers configured, else noop)
  5. Construct service, handler, router
  6. Serve with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  active requests, then close the store and flush the logger.

FLAGS:
  -addr  Listen address (overrides ADDR)
  -db    SQLite database path (overrides DATABASE_PATH); ":memory:"
         for an in-memory database
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/points-engine/api"
	"github.com/warp/points-engine/config"
	"github.com/warp/points-engine/events"
	eventskafka "github.com/warp/points-engine/events/kafka"
	"github.com/warp/points-engine/ledger"
	"github.com/warp/points-engine/store/postgres"
	"github.com/warp/points-engine/store/sqlite"
)

func main() {
	addr := flag.String("addr", "", "listen address (overrides ADDR)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DATABASE_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// The store handle is owned here: opened on startup, closed on
	// shutdown, injected into the service.
	var store interface {
		ledger.TxStore
		Close() error
	}
	if cfg.DatabaseURL != "" {
		store, err = postgres.New(cfg.DatabaseURL)
	} else {
		store, err = sqlite.New(cfg.DatabasePath)
	}
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()
	if cfg.DatabaseURL != "" {
		logger.Info("using postgres store")
	} else {
		logger.Info("using sqlite store", zap.String("path", cfg.DatabasePath))
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := eventskafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
		logger.Info("event stream enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	svc := ledger.NewService(store, publisher, logger)
	handler := api.NewHandler(svc, logger)
	router := api.NewRouter(handler, logger)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zapcfg := zap.NewProductionConfig()
	zapcfg.Level = lvl
	return zapcfg.Build()
}
