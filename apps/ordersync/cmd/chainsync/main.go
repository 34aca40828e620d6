package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"ordersync/apps/ordersync/internal/chainsync"
	"ordersync/apps/ordersync/internal/config"
	"ordersync/apps/ordersync/internal/httpx"
	"ordersync/apps/ordersync/internal/repository"
	"ordersync/apps/ordersync/internal/rpc"
	"ordersync/apps/ordersync/internal/sink"
)

// One-shot chunked scan of the exchange contract's order lifecycle events.
// Decoded transitions are POSTed to the backend ingestion endpoint; partial
// chunk failures are tolerated, only setup failures exit non-zero.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg := config.NewChainSyncConfig()
	runID := uuid.New().String()
	logger = logger.With(zap.String("run_id", runID))

	logger.Info("Starting chain sync run",
		zap.Strings("rpc_urls", cfg.RPCURLs),
		zap.String("exchange_contract", cfg.ExchangeContract),
		zap.String("nft_contract", cfg.NFTContract),
		zap.Uint64("chunk_size", cfg.ChunkSize))

	db, err := sql.Open("postgres", cfg.DbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.InitMigration(db); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	states := repository.NewSyncRepository(db, logger)

	ctx := context.Background()

	client, err := rpc.Connect(ctx, cfg.RPCURLs, logger)
	if err != nil {
		logger.Fatal("Failed to connect to any RPC endpoint", zap.Error(err))
	}
	defer client.Close()

	fromBlock := cfg.FromBlock
	if fromBlock == 0 {
		last, err := states.GetLastProcessedBlock(ctx, chainsync.SyncScope)
		if err != nil {
			logger.Fatal("Failed to read sync state", zap.Error(err))
		}
		fromBlock = last + 1
	}

	toBlock := cfg.ToBlock
	if toBlock == 0 {
		head, err := client.BlockNumber(ctx)
		if err != nil {
			logger.Fatal("Failed to get chain height", zap.Error(err))
		}
		toBlock = head
	}

	if fromBlock > toBlock {
		logger.Info("Nothing to scan",
			zap.Uint64("from_block", fromBlock),
			zap.Uint64("to_block", toBlock))
		return
	}

	backend := sink.NewHTTP(cfg.BackendURL, httpx.NewThrottle(&http.Client{Timeout: 30 * time.Second}, 0))

	scanner, err := chainsync.NewScanner(client, chainsync.Config{
		ExchangeContract: common.HexToAddress(cfg.ExchangeContract),
		NFTContract:      common.HexToAddress(cfg.NFTContract),
		ChunkSize:        cfg.ChunkSize,
		PriceDecimals:    cfg.PriceDecimals,
		ChunkPause:       cfg.RequestDelay,
	}, backend, states, logger)
	if err != nil {
		logger.Fatal("Failed to create scanner", zap.Error(err))
	}

	result, err := scanner.Scan(ctx, fromBlock, toBlock)
	if err != nil {
		logger.Fatal("Chain sync run failed", zap.Error(err))
	}

	logger.Info("Chain sync run complete",
		zap.Uint64("from_block", fromBlock),
		zap.Uint64("to_block", toBlock),
		zap.Int("total_dispatched", result.Total()),
		zap.Int("validated", result.Validated),
		zap.Int("fulfilled", result.Fulfilled),
		zap.Int("cancelled", result.Cancelled),
		zap.Int("chunks_failed", result.ChunksFailed),
		zap.Int("decode_failures", result.DecodeFailures),
		zap.Int("sink_failures", result.SinkFailures))
}
