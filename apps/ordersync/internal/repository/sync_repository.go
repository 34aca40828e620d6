package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// SyncRepository persists per-scope resume bookkeeping: listing walkers store
// their pagination position per marketplace scope, the chain scanner stores
// its last fully processed block under its own scope.
type SyncRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSyncRepository(db *sql.DB, logger *zap.Logger) *SyncRepository {
	return &SyncRepository{db: db, logger: logger}
}

// GetLastProcessedBlock returns the stored block for the scope, zero if the
// scope has never run.
func (s *SyncRepository) GetLastProcessedBlock(ctx context.Context, scope string) (uint64, error) {
	var block uint64
	err := s.db.QueryRowContext(ctx, `
		SELECT last_processed_block FROM sync_state WHERE scope = $1
	`, scope).Scan(&block)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get last processed block: %w", err)
	}
	return block, nil
}

// UpdateLastProcessedBlock records the last fully processed block for the scope.
func (s *SyncRepository) UpdateLastProcessedBlock(ctx context.Context, scope string, block uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (scope, last_processed_block)
		VALUES ($1, $2)
		ON CONFLICT (scope) DO UPDATE SET
			last_processed_block = EXCLUDED.last_processed_block,
			updated_at = NOW()
	`, scope, block)
	if err != nil {
		return fmt.Errorf("failed to update last processed block: %w", err)
	}
	return nil
}

// UpdateCursor records the walker's pagination position and running item count
// for the scope.
func (s *SyncRepository) UpdateCursor(ctx context.Context, scope, cursor string, itemsProcessed int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (scope, cursor, items_processed)
		VALUES ($1, $2, $3)
		ON CONFLICT (scope) DO UPDATE SET
			cursor = EXCLUDED.cursor,
			items_processed = EXCLUDED.items_processed,
			updated_at = NOW()
	`, scope, cursor, itemsProcessed)
	if err != nil {
		return fmt.Errorf("failed to update cursor: %w", err)
	}
	return nil
}
