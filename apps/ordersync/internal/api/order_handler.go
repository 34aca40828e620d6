package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"ordersync/apps/ordersync/internal/model"
)

const defaultListLimit = 100

// OrderHandler serves order read endpoints.
type OrderHandler struct {
	orders OrderStore
	logger *zap.Logger
}

func NewOrderHandler(orders OrderStore, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// GetOrder handles GET /api/v1/orders/{identifier}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	identifier := vars["identifier"]

	if identifier == "" {
		writeErrorResponse(w, http.StatusBadRequest, "missing_identifier", "Order identifier is required", h.logger)
		return
	}

	order, err := h.orders.GetByIdentifier(r.Context(), identifier)
	if err != nil {
		h.logger.Error("Failed to get order", zap.String("identifier", identifier), zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to retrieve order", h.logger)
		return
	}

	if order == nil {
		writeErrorResponse(w, http.StatusNotFound, "order_not_found", "Order not found", h.logger)
		return
	}

	writeJSONResponse(w, http.StatusOK, toOrderResponse(*order), h.logger)
}

// ListOrders handles GET /api/v1/orders?status=&limit=
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	status := model.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = model.StatusActive
	}
	if !status.Valid() {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_status", "Status must be active, fulfilled or cancelled", h.logger)
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeErrorResponse(w, http.StatusBadRequest, "invalid_limit", "Limit must be a positive integer", h.logger)
			return
		}
		limit = parsed
	}

	orders, err := h.orders.ListByStatus(r.Context(), status, limit)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.String("status", string(status)), zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to list orders", h.logger)
		return
	}

	responses := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		responses = append(responses, toOrderResponse(order))
	}

	writeJSONResponse(w, http.StatusOK, responses, h.logger)
}

func writeJSONResponse(w http.ResponseWriter, status int, payload interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string, logger *zap.Logger) {
	writeJSONResponse(w, status, ErrorResponse{Error: code, Message: message}, logger)
}
