package model

import (
	"encoding/json"
	"time"
)

// OutboxEvent is a chain lifecycle transition accepted by the ingestion API,
// buffered for at-least-once delivery to Kafka. The (identifier, event_type,
// block_number, log_index) tuple keeps chain rescans idempotent.
type OutboxEvent struct {
	Identifier  string          `db:"identifier"`
	EventType   string          `db:"event_type"`
	Status      string          `db:"status"` // unsent | processing | sent
	BlockNumber uint64          `db:"block_number"`
	LogIndex    uint            `db:"log_index"`
	TxHash      string          `db:"tx_hash"`
	EventBlob   json.RawMessage `db:"event_blob"`
	CreatedAt   time.Time       `db:"created_at"`
}
