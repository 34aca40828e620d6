package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"ordersync/apps/ordersync/internal/model"
)

// OutboxRepository buffers accepted chain transitions for the Kafka publisher.
type OutboxRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOutboxRepository(db *sql.DB, logger *zap.Logger) *OutboxRepository {
	return &OutboxRepository{db: db, logger: logger}
}

// Store records the event. Re-ingesting the same chain log replaces the row in
// place, so a rescan never duplicates a publication that has not been sent yet.
func (o *OutboxRepository) Store(ctx context.Context, event model.OutboxEvent) error {
	_, err := o.db.ExecContext(ctx, `
		INSERT INTO order_outbox (identifier, event_type, status, block_number, log_index, tx_hash, event_blob)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identifier, event_type, block_number, log_index) DO UPDATE SET
			tx_hash = EXCLUDED.tx_hash,
			event_blob = EXCLUDED.event_blob,
			created_at = NOW()
	`, event.Identifier, event.EventType, event.Status, event.BlockNumber, event.LogIndex, event.TxHash, event.EventBlob)

	if err != nil {
		return fmt.Errorf("failed to store outbox event: %w", err)
	}

	o.logger.Info("Stored outbox event",
		zap.String("identifier", event.Identifier),
		zap.String("event_type", event.EventType),
		zap.Uint64("block_number", event.BlockNumber))
	return nil
}

// GetUnsentForProcessing selects up to limit unsent events and marks them
// processing inside one transaction so concurrent publisher instances never
// pick up the same batch.
func (o *OutboxRepository) GetUnsentForProcessing(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // Will be ignored if tx.Commit() succeeds

	rows, err := tx.QueryContext(ctx, `
		SELECT identifier, event_type, status, block_number, log_index, tx_hash, event_blob, created_at
		FROM order_outbox
		WHERE status = 'unsent'
		ORDER BY created_at, block_number, log_index
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.OutboxEvent
	for rows.Next() {
		var event model.OutboxEvent
		if err := rows.Scan(&event.Identifier, &event.EventType, &event.Status,
			&event.BlockNumber, &event.LogIndex, &event.TxHash, &event.EventBlob, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	rows.Close()

	for _, event := range events {
		_, err = tx.ExecContext(ctx, `
			UPDATE order_outbox
			SET status = 'processing'
			WHERE identifier = $1 AND event_type = $2 AND block_number = $3 AND log_index = $4 AND status = 'unsent'
		`, event.Identifier, event.EventType, event.BlockNumber, event.LogIndex)
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return events, nil
}

// MarkSent finalizes a published event.
func (o *OutboxRepository) MarkSent(ctx context.Context, event model.OutboxEvent) error {
	return o.setStatus(ctx, event, "sent", "processing")
}

// MarkFailed returns an event to the unsent pool for retry.
func (o *OutboxRepository) MarkFailed(ctx context.Context, event model.OutboxEvent) error {
	return o.setStatus(ctx, event, "unsent", "processing")
}

func (o *OutboxRepository) setStatus(ctx context.Context, event model.OutboxEvent, to, from string) error {
	_, err := o.db.ExecContext(ctx, `
		UPDATE order_outbox
		SET status = $1
		WHERE identifier = $2 AND event_type = $3 AND block_number = $4 AND log_index = $5 AND status = $6
	`, to, event.Identifier, event.EventType, event.BlockNumber, event.LogIndex, from)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s: %w", to, err)
	}
	return nil
}
