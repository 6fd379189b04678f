// internal/order/handler.go
package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markb/tably/internal/model"
	"github.com/markb/tably/internal/realtime"
	"github.com/markb/tably/internal/types"
)

// Handler serves the order endpoints of the admin API. Status changes
// broadcast after the row is durable; a broadcast that reaches nobody is
// still a success.
type Handler struct {
	store   *Store
	emitter *realtime.Emitter
}

// NewHandler creates an order handler.
func NewHandler(store *Store, emitter *realtime.Emitter) *Handler {
	return &Handler{store: store, emitter: emitter}
}

// RegisterRoutes mounts the order routes on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())

	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidOrderStatus(status) {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Unknown order status")
		return
	}

	orders, err := h.store.List(admin.ID, status)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list orders")
		return
	}
	types.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid order id")
		return
	}

	o, err := h.store.GetForAdmin(admin.ID, id)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Order not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to get order")
		return
	}
	types.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid order id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	updated, err := h.store.UpdateStatus(admin.ID, id, req.Status)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Order not found")
		return
	}
	var transitionErr *ErrInvalidTransition
	if errors.As(err, &transitionErr) {
		types.WriteError(w, http.StatusConflict, "invalid_transition", err.Error())
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "update_failed", err.Error())
		return
	}

	h.emitter.OrderStatusChanged(*updated)
	types.WriteJSON(w, http.StatusOK, updated)
}
