package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ordersync/apps/ordersync/internal/api"
	"ordersync/apps/ordersync/internal/config"
	"ordersync/apps/ordersync/internal/httpx"
	"ordersync/apps/ordersync/internal/listings"
	"ordersync/apps/ordersync/internal/markets"
	"ordersync/apps/ordersync/internal/metrics"
	"ordersync/apps/ordersync/internal/publisher"
	"ordersync/apps/ordersync/internal/repository"
)

// ingestd is the long-running backend: it exposes the ingestion and read API,
// relays accepted transitions from the outbox to Kafka, and optionally runs
// the marketplace listing sync on a cron schedule.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg := config.NewIngestConfig()

	logger.Info("Starting ingestd with configuration",
		zap.String("db_url", cfg.DbURL),
		zap.String("kafka_broker", cfg.KafkaBroker),
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.Int("api_port", cfg.APIPort),
		zap.String("listings_cron", cfg.ListingsCron))

	db, err := sql.Open("postgres", cfg.DbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := repository.InitMigration(db); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	orders := repository.NewOrderRepository(db, logger)
	outbox := repository.NewOutboxRepository(db, logger)
	states := repository.NewSyncRepository(db, logger)
	registry := metrics.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventPublisher, err := publisher.NewPublisher(cfg.KafkaBroker, cfg.KafkaTopic, logger, outbox, registry)
	if err != nil {
		logger.Fatal("Failed to create event publisher", zap.Error(err))
	}
	defer eventPublisher.Close()

	go eventPublisher.StartPublishing(ctx)

	apiServer := api.NewServer(cfg.APIPort, orders, outbox, registry, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	var scheduler *cron.Cron
	if cfg.ListingsCron != "" {
		throttle := httpx.NewThrottle(&http.Client{Timeout: 30 * time.Second}, 1200*time.Millisecond)
		retry := httpx.NewRetry(3, time.Second)
		runner := listings.NewRunner(markets.GlobalRegistry, throttle, retry, orders, states, logger)

		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.ListingsCron, func() {
			if _, err := runner.SyncAll(ctx, cfg.Collection, cfg.Marketplaces); err != nil {
				logger.Error("Scheduled listing sync failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("Failed to schedule listing sync", zap.Error(err))
		}
		scheduler.Start()
		logger.Info("Scheduled listing sync", zap.String("cron", cfg.ListingsCron))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Received shutdown signal, starting graceful shutdown...")

	cancel()
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error shutting down API server", zap.Error(err))
	}

	if err := db.Close(); err != nil {
		logger.Error("Error closing database", zap.Error(err))
	}

	logger.Info("Application shutdown complete")
}
