// internal/server/public_handlers.go
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markb/tably/internal/log"
	"github.com/markb/tably/internal/model"
	"github.com/markb/tably/internal/order"
	"github.com/markb/tably/internal/storage/backend"
	"github.com/markb/tably/internal/table"
	"github.com/markb/tably/internal/types"
)

// scanResponse is what a scanned QR code resolves to: the restaurant,
// the table, and the currently orderable menu.
type scanResponse struct {
	RestaurantName string            `json:"restaurant_name"`
	Theme          map[string]any    `json:"theme"`
	Table          *model.Table      `json:"table"`
	Categories     []*model.Category `json:"categories"`
	Menus          []*model.Menu     `json:"menus"`
}

// handleScanTable serves the customer's first request after scanning a
// QR code. The first scan of an available table flips it to occupied and
// notifies the dashboard; repeat scans change nothing.
func (s *Server) handleScanTable(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	t, err := s.tableStore.GetByCode(code)
	if errors.Is(err, table.ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Table not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to resolve table")
		return
	}

	flipped, err := s.tableStore.Occupy(t.ID)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to update table")
		return
	}
	if flipped {
		t.Status = model.TableOccupied
		s.realtimeService.Emitter().TableOccupied(*t)
	}

	admin, err := s.authService.GetAdminByID(t.AdminID)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to load restaurant")
		return
	}

	categories, err := s.menuStore.ListCategories(t.AdminID)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to load menu")
		return
	}
	menus, err := s.menuStore.ListMenus(t.AdminID, true)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to load menu")
		return
	}

	types.WriteJSON(w, http.StatusOK, scanResponse{
		RestaurantName: admin.RestaurantName,
		Theme:          admin.Theme,
		Table:          t,
		Categories:     categories,
		Menus:          menus,
	})
}

type placeOrderRequest struct {
	Notes string            `json:"notes"`
	Items []order.ItemInput `json:"items"`
}

// handlePlaceOrder creates an order from the customer's table. The
// dashboard hears about it only after the order row is durable.
func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	t, err := s.tableStore.GetByCode(code)
	if errors.Is(err, table.ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Table not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to resolve table")
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	created, err := s.orderStore.Create(t.AdminID, t.ID, req.Notes, req.Items)
	if errors.Is(err, order.ErrEmptyOrder) {
		types.WriteError(w, http.StatusBadRequest, "validation_failed", "Order must have at least one item")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "create_failed", err.Error())
		return
	}

	s.realtimeService.Emitter().OrderCreated(*created)
	types.WriteJSON(w, http.StatusCreated, created)
}

// handleTrackOrder serves the customer's order-tracking page. No
// credentials: knowing the order id is the capability.
func (s *Server) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid order id")
		return
	}

	o, err := s.orderStore.Get(id)
	if errors.Is(err, order.ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Order not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to get order")
		return
	}
	types.WriteJSON(w, http.StatusOK, o)
}

// handleGetImage streams a menu image from the blob backend.
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	reader, info, err := s.storageService.OpenImage(r.Context(), key)
	if err != nil {
		if backend.IsNotFound(err) || backend.IsInvalidKey(err) {
			types.WriteError(w, http.StatusNotFound, "not_found", "Image not found")
			return
		}
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to open image")
		return
	}
	defer reader.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		log.Debug("image stream interrupted", "key", key, "error", err.Error())
	}
}
