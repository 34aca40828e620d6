package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ordersync/apps/ordersync/internal/events"
	"ordersync/apps/ordersync/internal/metrics"
	"ordersync/apps/ordersync/internal/model"
	"ordersync/apps/ordersync/internal/normalize"
)

// OrderStore is the slice of the order repository the handlers need.
type OrderStore interface {
	Upsert(ctx context.Context, order model.Order) error
	GetByIdentifier(ctx context.Context, identifier string) (*model.Order, error)
	ListByStatus(ctx context.Context, status model.Status, limit int) ([]model.Order, error)
}

// OutboxStore records accepted transitions for the Kafka publisher.
type OutboxStore interface {
	Store(ctx context.Context, event model.OutboxEvent) error
}

// EventHandler ingests normalized on-chain lifecycle transitions posted by
// the scanner.
type EventHandler struct {
	orders  OrderStore
	outbox  OutboxStore
	metrics *metrics.Registry
	logger  *zap.Logger
}

func NewEventHandler(orders OrderStore, outbox OutboxStore, registry *metrics.Registry, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		orders:  orders,
		outbox:  outbox,
		metrics: registry,
		logger:  logger,
	}
}

// IngestEvent handles POST /api/v1/events
func (h *EventHandler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var ev events.OrderEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		h.reject(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}

	if ev.OrderHash == "" {
		h.reject(w, http.StatusBadRequest, "missing_order_hash", "Order hash is required")
		return
	}
	if ev.NFTContract == "" {
		h.reject(w, http.StatusBadRequest, "missing_nft_contract", "NFT contract is required")
		return
	}

	order, err := normalize.Transition(ev)
	if err != nil {
		h.reject(w, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}

	if err := h.orders.Upsert(r.Context(), order); err != nil {
		h.logger.Error("Failed to upsert order from event",
			zap.String("identifier", order.Identifier),
			zap.String("event_type", ev.EventType),
			zap.Error(err))
		h.reject(w, http.StatusInternalServerError, "database_error", "Failed to persist order")
		return
	}

	blob, err := json.Marshal(ev)
	if err != nil {
		h.reject(w, http.StatusInternalServerError, "marshal_error", "Failed to serialize event")
		return
	}

	if err := h.outbox.Store(r.Context(), model.OutboxEvent{
		Identifier:  order.Identifier,
		EventType:   ev.EventType,
		Status:      "unsent",
		BlockNumber: ev.BlockNumber,
		LogIndex:    ev.LogIndex,
		TxHash:      ev.TxHash,
		EventBlob:   blob,
	}); err != nil {
		h.logger.Error("Failed to store outbox event",
			zap.String("identifier", order.Identifier),
			zap.String("event_type", ev.EventType),
			zap.Error(err))
		h.reject(w, http.StatusInternalServerError, "database_error", "Failed to record event")
		return
	}

	h.metrics.EventsAccepted.Inc()
	h.metrics.OrdersUpserted.Inc()
	h.metrics.IngestLatency.Observe(time.Since(start).Seconds())

	writeJSONResponse(w, http.StatusOK, EventAcceptedResponse{
		Status:     "accepted",
		Identifier: order.Identifier,
	}, h.logger)
}

func (h *EventHandler) reject(w http.ResponseWriter, status int, code, message string) {
	h.metrics.EventsRejected.Inc()
	writeErrorResponse(w, status, code, message, h.logger)
}
