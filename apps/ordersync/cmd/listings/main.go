package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"ordersync/apps/ordersync/internal/config"
	"ordersync/apps/ordersync/internal/httpx"
	"ordersync/apps/ordersync/internal/listings"
	"ordersync/apps/ordersync/internal/markets"
	"ordersync/apps/ordersync/internal/repository"
)

// One-shot marketplace listing sync: walk every enabled marketplace's active
// listings for the configured collection and upsert them into the order store.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg := config.NewListingsConfig()
	runID := uuid.New().String()
	logger = logger.With(zap.String("run_id", runID))

	logger.Info("Starting listing sync run",
		zap.String("collection", cfg.Collection),
		zap.Strings("marketplaces", cfg.Marketplaces),
		zap.Duration("request_delay", cfg.RequestDelay),
		zap.Int("max_retries", cfg.MaxRetries))

	db, err := sql.Open("postgres", cfg.DbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.InitMigration(db); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	orders := repository.NewOrderRepository(db, logger)
	states := repository.NewSyncRepository(db, logger)

	throttle := httpx.NewThrottle(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.RequestDelay)
	retry := httpx.NewRetry(cfg.MaxRetries, cfg.RetryBaseDelay)

	runner := listings.NewRunner(markets.GlobalRegistry, throttle, retry, orders, states, logger)

	results, err := runner.SyncAll(context.Background(), cfg.Collection, cfg.Marketplaces)
	if err != nil {
		logger.Fatal("Listing sync run failed", zap.Error(err))
	}

	total := 0
	for _, result := range results {
		total += result.Upserted
	}
	logger.Info("Listing sync run complete",
		zap.Int("marketplaces", len(results)),
		zap.Int("total_upserted", total))
}
