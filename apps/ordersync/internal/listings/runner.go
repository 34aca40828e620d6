package listings

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"ordersync/apps/ordersync/internal/httpx"
	"ordersync/apps/ordersync/internal/markets"
	"ordersync/apps/ordersync/internal/sink"
)

// Runner drives one walker per enabled marketplace against a single
// collection. Shared between the one-shot listings binary and the scheduled
// sync inside ingestd.
type Runner struct {
	registry *markets.Registry
	client   *httpx.Throttle
	retry    httpx.Retry
	sink     sink.Sink
	states   CursorStore
	logger   *zap.Logger
}

func NewRunner(registry *markets.Registry, client *httpx.Throttle, retry httpx.Retry, s sink.Sink, states CursorStore, logger *zap.Logger) *Runner {
	return &Runner{
		registry: registry,
		client:   client,
		retry:    retry,
		sink:     s,
		states:   states,
		logger:   logger,
	}
}

// SyncAll walks every named marketplace (all registered ones when names is
// empty) sequentially. A fetch failure aborts the run with the walker's fatal
// error; the per-marketplace results collected so far are still returned.
func (r *Runner) SyncAll(ctx context.Context, collection string, names []string) (map[string]Result, error) {
	profiles, err := r.resolve(names)
	if err != nil {
		return nil, err
	}

	results := make(map[string]Result, len(profiles))
	for _, profile := range profiles {
		apiKey := ""
		if profile.APIKeyEnv != "" {
			apiKey = os.Getenv(profile.APIKeyEnv)
		}

		walker := NewWalker(profile, apiKey, r.client, r.retry, r.sink, r.states, r.logger)

		r.logger.Info("Starting listing sync",
			zap.String("marketplace", profile.Name),
			zap.String("collection", collection))

		result, err := walker.Run(ctx, collection)
		results[profile.Name] = result
		if err != nil {
			return results, fmt.Errorf("listing sync for %s failed: %w", profile.Name, err)
		}

		r.logger.Info("Listing sync complete",
			zap.String("marketplace", profile.Name),
			zap.Int("pages", result.Pages),
			zap.Int("upserted", result.Upserted),
			zap.Int("normalize_failures", result.NormalizeFailures),
			zap.Int("sink_failures", result.SinkFailures))
	}

	return results, nil
}

func (r *Runner) resolve(names []string) ([]*markets.Profile, error) {
	if len(names) == 0 {
		return r.registry.All(), nil
	}

	profiles := make([]*markets.Profile, 0, len(names))
	for _, name := range names {
		profile, ok := r.registry.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown marketplace %q", name)
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}
