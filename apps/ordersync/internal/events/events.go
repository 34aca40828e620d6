package events

import (
	"encoding/json"
	"time"
)

// Event type values carried on the wire between the chain scanner and the
// ingestion API, and on the Kafka topic.
const (
	TypeOrderValidated = "order_validated"
	TypeOrderFulfilled = "order_fulfilled"
	TypeOrderCancelled = "order_cancelled"
)

// OrderEvent is the normalized shape of one on-chain order lifecycle
// transition. The scanner POSTs it to the ingestion API; price stays in raw
// base units here (with the decimals needed to scale it) so the transport is
// lossless.
type OrderEvent struct {
	EventType        string `json:"event_type"`
	OrderHash        string `json:"order_hash"`
	Offerer          string `json:"offerer"`
	Fulfiller        string `json:"fulfiller,omitempty"`
	NFTContract      string `json:"nft_contract"`
	ExchangeContract string `json:"exchange_contract"`
	TokenID          string `json:"token_id"`
	RawPrice         string `json:"raw_price,omitempty"`
	PriceDecimals    int    `json:"price_decimals"`
	BlockNumber      uint64 `json:"block_number"`
	LogIndex         uint   `json:"log_index"`
	TxHash           string `json:"tx_hash"`
}

// OrderPublished is the message produced to Kafka for every transition the
// backend accepts.
type OrderPublished struct {
	EventType   string          `json:"event_type"`
	Identifier  string          `json:"identifier"`
	BlockNumber uint64          `json:"block_number"`
	LogIndex    uint64          `json:"log_index"`
	TxHash      string          `json:"tx_hash"`
	EventData   json.RawMessage `json:"event_data"`
	Timestamp   time.Time       `json:"timestamp"`
}
