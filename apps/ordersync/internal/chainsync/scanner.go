package chainsync

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"ordersync/apps/ordersync/internal/events"
	"ordersync/apps/ordersync/internal/sink"
)

// LogSource is the chain read surface the scanner needs; rpc.Client satisfies
// it with endpoint failover.
type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
}

// BlockStore persists the last fully processed block per scope. Optional; a
// nil store disables resume bookkeeping.
type BlockStore interface {
	UpdateLastProcessedBlock(ctx context.Context, scope string, block uint64) error
}

// SyncScope is the sync_state scope the scanner checkpoints under.
const SyncScope = "chain"

// Result carries the per-kind counts of one scan, threaded back to the caller
// instead of accumulating in package state.
type Result struct {
	Validated      int
	Fulfilled      int
	Cancelled      int
	ChunksFailed   int
	DecodeFailures int
	SkippedOther   int
	SinkFailures   int
}

// Total returns the number of transitions that reached the sink.
func (r Result) Total() int {
	return r.Validated + r.Fulfilled + r.Cancelled
}

// Config parameterizes a scanner.
type Config struct {
	ExchangeContract common.Address
	NFTContract      common.Address
	ChunkSize        uint64
	PriceDecimals    int
	ChunkPause       time.Duration
}

// Scanner walks a block range of the exchange contract in fixed-size chunks
// and dispatches decoded order lifecycle events to the ingestion sink.
type Scanner struct {
	client  LogSource
	cfg     Config
	decoder *decoder
	sink    sink.Events
	states  BlockStore
	logger  *zap.Logger
}

func NewScanner(client LogSource, cfg Config, eventSink sink.Events, states BlockStore, logger *zap.Logger) (*Scanner, error) {
	if cfg.ChunkSize == 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	dec, err := newDecoder(cfg.PriceDecimals)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		client:  client,
		cfg:     cfg,
		decoder: dec,
		sink:    eventSink,
		states:  states,
		logger:  logger,
	}, nil
}

// pass is one sequential sweep of the block range for a single event kind.
type pass struct {
	name   string
	sig    common.Hash
	decode func(types.Log) (events.OrderEvent, error)
	count  *int
}

// Scan walks [fromBlock, toBlock] once per event kind, in a fixed order:
// validated first, then the terminal kinds, so a token's terminal state from
// a later pass overwrites an active write from the first pass within the same
// run. A failed chunk is logged and skipped, never aborting the range; a log
// that fails to decode is skipped and counted separately. The resume
// checkpoint never advances past the first failed chunk of any pass, so the
// next run re-covers the blocks whose events were lost.
func (s *Scanner) Scan(ctx context.Context, fromBlock, toBlock uint64) (Result, error) {
	if fromBlock > toBlock {
		return Result{}, fmt.Errorf("invalid block range %d-%d", fromBlock, toBlock)
	}

	var result Result
	// First block of the earliest failed chunk across all passes; blocks at
	// or beyond it must not be checkpointed as processed.
	failedFrom := toBlock + 1
	passes := []pass{
		{name: "OrderValidated", sig: OrderValidatedSig, decode: s.decoder.decodeValidated, count: &result.Validated},
		{name: "OrderFulfilled", sig: OrderFulfilledSig, decode: s.decoder.decodeFulfilled, count: &result.Fulfilled},
		{name: "OrderCancelled", sig: OrderCancelledSig, decode: s.decoder.decodeCancelled, count: &result.Cancelled},
	}

	for i, p := range passes {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		final := i == len(passes)-1
		s.scanPass(ctx, p, fromBlock, toBlock, final, &failedFrom, &result)
	}

	s.logger.Info("Scan complete",
		zap.Uint64("from_block", fromBlock),
		zap.Uint64("to_block", toBlock),
		zap.Int("validated", result.Validated),
		zap.Int("fulfilled", result.Fulfilled),
		zap.Int("cancelled", result.Cancelled),
		zap.Int("chunks_failed", result.ChunksFailed),
		zap.Int("decode_failures", result.DecodeFailures),
		zap.Int("skipped_other", result.SkippedOther),
		zap.Int("sink_failures", result.SinkFailures))

	return result, nil
}

func (s *Scanner) scanPass(ctx context.Context, p pass, fromBlock, toBlock uint64, finalPass bool, failedFrom *uint64, result *Result) {
	for start := fromBlock; start <= toBlock; start += s.cfg.ChunkSize {
		end := start + s.cfg.ChunkSize - 1
		if end > toBlock {
			end = toBlock
		}

		s.logger.Info("Scanning block range for events",
			zap.String("event", p.name),
			zap.Uint64("start", start),
			zap.Uint64("end", end))

		if err := s.processChunk(ctx, p, start, end, result); err != nil {
			s.logger.Error("Failed to process chunk, continuing with next",
				zap.String("event", p.name),
				zap.Uint64("start", start),
				zap.Uint64("end", end),
				zap.Error(err))
			result.ChunksFailed++
			if start < *failedFrom {
				*failedFrom = start
			}
			continue
		}

		if finalPass && s.states != nil && end < *failedFrom {
			if err := s.states.UpdateLastProcessedBlock(ctx, SyncScope, end); err != nil {
				s.logger.Error("Failed to update last processed block",
					zap.Uint64("block", end),
					zap.Error(err))
			}
		}

		if s.cfg.ChunkPause > 0 {
			time.Sleep(s.cfg.ChunkPause)
		}
	}
}

func (s *Scanner) processChunk(ctx context.Context, p pass, fromBlock, toBlock uint64, result *Result) error {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{s.cfg.ExchangeContract},
		Topics: [][]common.Hash{
			{p.sig},
		},
	}

	logs, err := s.client.FilterLogs(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to filter logs: %w", err)
	}

	for _, eventLog := range logs {
		ev, err := p.decode(eventLog)
		if err != nil {
			s.logger.Error("Failed to decode event log, skipping",
				zap.String("event", p.name),
				zap.String("tx_hash", eventLog.TxHash.Hex()),
				zap.Error(err))
			result.DecodeFailures++
			continue
		}

		// Logs for other collections share the exchange contract; only the
		// configured collection is ingested.
		if !strings.EqualFold(ev.NFTContract, s.cfg.NFTContract.Hex()) {
			result.SkippedOther++
			continue
		}

		if err := s.sink.Send(ctx, ev); err != nil {
			s.logger.Error("Failed to dispatch event, skipping",
				zap.String("event", p.name),
				zap.String("order_hash", ev.OrderHash),
				zap.Error(err))
			result.SinkFailures++
			continue
		}
		*p.count++
	}

	return nil
}
