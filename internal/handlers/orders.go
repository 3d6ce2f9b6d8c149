package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"storefront-api/internal/models"
	"storefront-api/internal/services"
	"storefront-api/internal/telemetry"
)

// IdempotencyKeyHeader lets clients retry order creation safely
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderHandler serves orders
type OrderHandler struct {
	orders *services.OrderService
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List handles GET /api/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders := h.orders.List()
	telemetry.SetResultCount(r.Context(), len(orders))
	writeJSONResponse(w, http.StatusOK, orders)
}

// ByUser handles GET /api/orders/user/{userId}
func (h *OrderHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	orders := h.orders.ListByUser(mux.Vars(r)["userId"])
	telemetry.SetResultCount(r.Context(), len(orders))
	writeJSONResponse(w, http.StatusOK, orders)
}

// Get handles GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, order)
}

// Create handles POST /api/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft models.OrderDraft
	if !decodeJSON(w, r, &draft, false) {
		return
	}

	idempotencyKey := r.Header.Get(IdempotencyKeyHeader)
	slog.Info("Processing order",
		"user_id", draft.UserID,
		"items", len(draft.Items),
		"idempotency_key", idempotencyKey,
		"remote_addr", r.RemoteAddr)

	order, err := h.orders.Create(draft, idempotencyKey)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, order)
}

// UpdateStatus handles PUT /api/orders/{id}
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.OrderStatusUpdate
	if !decodeJSON(w, r, &req, true) {
		return
	}

	order, err := h.orders.UpdateStatus(mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, order)
}

// Delete handles DELETE /api/orders/{id}
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Delete(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, order)
}
