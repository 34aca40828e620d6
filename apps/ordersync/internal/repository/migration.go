package repository

import (
	"database/sql"
	"fmt"
)

// InitMigration initializes the database. In production, this would use a proper migration
// library like go-migrate
func InitMigration(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			identifier TEXT NOT NULL UNIQUE,
			token_id TEXT,
			price NUMERIC(78,18),
			nft_contract TEXT NOT NULL,
			marketplace_contract TEXT NOT NULL,
			seller_address TEXT,
			buyer_address TEXT,
			raw_payload JSONB,
			status VARCHAR(20) NOT NULL,
			image TEXT,
			on_chain_block BIGINT,
			source VARCHAR(50) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_contract_status ON orders (nft_contract, status)`,
		`CREATE TABLE IF NOT EXISTS order_outbox (
			identifier TEXT NOT NULL,
			event_type VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'unsent',
			block_number BIGINT NOT NULL,
			log_index INTEGER NOT NULL,
			tx_hash VARCHAR(66) NOT NULL,
			event_blob JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			PRIMARY KEY (identifier, event_type, block_number, log_index)
		)`,
		`CREATE TABLE IF NOT EXISTS sync_state (
			scope TEXT PRIMARY KEY,
			cursor TEXT,
			last_processed_block BIGINT NOT NULL DEFAULT 0,
			items_processed BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}
