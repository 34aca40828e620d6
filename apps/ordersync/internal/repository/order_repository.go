package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"ordersync/apps/ordersync/internal/model"
)

// OrderRepository is the Postgres-backed idempotent sink for canonical orders.
type OrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderRepository(db *sql.DB, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{db: db, logger: logger}
}

// Upsert inserts or updates the order keyed on identifier. The WHERE predicate
// on the update arm enforces the status transition guard in SQL: a terminal
// row is never downgraded back to active. A rejected write changes nothing
// and still reports success, which keeps both pipelines free to replay.
func (r *OrderRepository) Upsert(ctx context.Context, order model.Order) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (identifier, token_id, price, nft_contract, marketplace_contract, seller_address, buyer_address, raw_payload, status, image, on_chain_block, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (identifier) DO UPDATE SET
			token_id = EXCLUDED.token_id,
			price = EXCLUDED.price,
			nft_contract = EXCLUDED.nft_contract,
			marketplace_contract = EXCLUDED.marketplace_contract,
			seller_address = EXCLUDED.seller_address,
			buyer_address = COALESCE(EXCLUDED.buyer_address, orders.buyer_address),
			raw_payload = EXCLUDED.raw_payload,
			status = EXCLUDED.status,
			image = COALESCE(EXCLUDED.image, orders.image),
			on_chain_block = COALESCE(EXCLUDED.on_chain_block, orders.on_chain_block),
			source = EXCLUDED.source,
			updated_at = NOW()
		WHERE orders.status = 'active' OR EXCLUDED.status <> 'active'
	`, order.Identifier, order.TokenID, order.Price, order.NFTContract, order.MarketplaceContract,
		order.Seller, order.Buyer, order.RawPayload, order.Status, order.Image, order.OnChainBlock, order.Source)

	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}

	r.logger.Info("Upserted order",
		zap.String("identifier", order.Identifier),
		zap.String("status", string(order.Status)),
		zap.String("source", order.Source),
		zap.String("nft_contract", order.NFTContract))
	return nil
}

const orderColumns = `identifier, token_id, price, nft_contract, marketplace_contract, seller_address, buyer_address, raw_payload, status, image, on_chain_block, source, created_at, updated_at`

// GetByIdentifier returns the order with the given identifier, or nil if none
// exists.
func (r *OrderRepository) GetByIdentifier(ctx context.Context, identifier string) (*model.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE identifier = $1
	`, identifier)

	order, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// ListByStatus returns up to limit orders in the given lifecycle state,
// newest first.
func (r *OrderRepository) ListByStatus(ctx context.Context, status model.Status, limit int) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	return orders, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row scannable) (*model.Order, error) {
	var order model.Order
	err := row.Scan(&order.Identifier, &order.TokenID, &order.Price, &order.NFTContract,
		&order.MarketplaceContract, &order.Seller, &order.Buyer, &order.RawPayload,
		&order.Status, &order.Image, &order.OnChainBlock, &order.Source,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
