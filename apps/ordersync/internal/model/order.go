package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusActive    Status = "active"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status can never transition again.
func (s Status) Terminal() bool {
	return s == StatusFulfilled || s == StatusCancelled
}

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusFulfilled || s == StatusCancelled
}

// Order is the canonical order record persisted in the orders table. Both the
// marketplace listing pipeline and the on-chain scanner converge on this shape;
// Identifier is the unique upsert key.
type Order struct {
	Identifier          string              `db:"identifier"`
	TokenID             *string             `db:"token_id"`
	Price               decimal.NullDecimal `db:"price"` // whole-unit value, never raw base units
	NFTContract         string              `db:"nft_contract"`
	MarketplaceContract string              `db:"marketplace_contract"`
	Seller              *string             `db:"seller_address"`
	Buyer               *string             `db:"buyer_address"` // set on fulfillment only
	RawPayload          json.RawMessage     `db:"raw_payload"`
	Status              Status              `db:"status"`
	Image               *string             `db:"image"`
	OnChainBlock        *uint64             `db:"on_chain_block"` // chain-sourced records only
	Source              string              `db:"source"`
	CreatedAt           time.Time           `db:"created_at"`
	UpdatedAt           time.Time           `db:"updated_at"`
}
