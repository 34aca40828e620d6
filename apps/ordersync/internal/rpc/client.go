package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ErrNoEndpoint means every candidate RPC endpoint failed the liveness probe.
var ErrNoEndpoint = errors.New("no reachable rpc endpoint")

// Client is a chain RPC client with endpoint failover. Connect picks the first
// live candidate; if a call later fails, the client rotates through the
// remaining candidates (dialing lazily) before reporting the error, so a
// mid-run endpoint death does not kill a scan.
type Client struct {
	candidates []string
	logger     *zap.Logger

	active *ethclient.Client
	index  int
}

// Connect probes the candidate endpoints in order with a chain-height call and
// returns a client bound to the first one that responds. Returns ErrNoEndpoint
// if the list is exhausted.
func Connect(ctx context.Context, urls []string, logger *zap.Logger) (*Client, error) {
	if len(urls) == 0 {
		return nil, ErrNoEndpoint
	}

	for i, url := range urls {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			logger.Warn("Failed to dial RPC endpoint", zap.String("url", url), zap.Error(err))
			continue
		}

		if _, err := client.BlockNumber(ctx); err != nil {
			logger.Warn("RPC endpoint failed liveness probe", zap.String("url", url), zap.Error(err))
			client.Close()
			continue
		}

		logger.Info("Connected to RPC endpoint", zap.String("url", url))
		return &Client{
			candidates: urls,
			logger:     logger,
			active:     client,
			index:      i,
		}, nil
	}

	return nil, ErrNoEndpoint
}

// BlockNumber returns the current chain height, rotating endpoints on failure.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.withFailover(ctx, "eth_blockNumber", func(client *ethclient.Client) error {
		var err error
		height, err = client.BlockNumber(ctx)
		return err
	})
	return height, err
}

// FilterLogs queries event logs, rotating endpoints on failure.
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := c.withFailover(ctx, "eth_getLogs", func(client *ethclient.Client) error {
		var err error
		logs, err = client.FilterLogs(ctx, query)
		return err
	})
	return logs, err
}

// withFailover runs call against the active endpoint, then against each
// remaining candidate in turn until one succeeds or all have failed.
func (c *Client) withFailover(ctx context.Context, method string, call func(*ethclient.Client) error) error {
	lastErr := call(c.active)
	if lastErr == nil {
		return nil
	}

	for offset := 1; offset < len(c.candidates); offset++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		next := (c.index + offset) % len(c.candidates)
		url := c.candidates[next]
		c.logger.Warn("RPC call failed, rotating endpoint",
			zap.String("method", method),
			zap.String("next_url", url),
			zap.Error(lastErr))

		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}

		if err := call(client); err != nil {
			client.Close()
			lastErr = err
			continue
		}

		c.active.Close()
		c.active = client
		c.index = next
		return nil
	}

	return fmt.Errorf("%s failed on all endpoints: %w", method, lastErr)
}

// Close releases the active connection.
func (c *Client) Close() {
	if c.active != nil {
		c.active.Close()
	}
}
