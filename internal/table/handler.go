// internal/table/handler.go
package table

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markb/tably/internal/model"
	"github.com/markb/tably/internal/plan"
	"github.com/markb/tably/internal/types"
)

// Handler serves the table endpoints of the admin API. Occupancy flips
// happen on the public QR endpoint, not here; Release is the only status
// change an admin makes directly.
type Handler struct {
	store   *Store
	plans   *plan.Service
	baseURL string
}

// NewHandler creates a table handler. baseURL is the public origin used
// to build each table's QR payload.
func NewHandler(store *Store, plans *plan.Service, baseURL string) *Handler {
	return &Handler{store: store, plans: plans, baseURL: baseURL}
}

// RegisterRoutes mounts the table routes on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tables", h.List)
	r.Post("/tables", h.Create)
	r.Get("/tables/{id}", h.Get)
	r.Put("/tables/{id}", h.Rename)
	r.Post("/tables/{id}/release", h.Release)
	r.Delete("/tables/{id}", h.Delete)
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// tableResponse decorates a table row with the public URL its QR
// sticker should encode.
type tableResponse struct {
	*model.Table
	QRPayload string `json:"qr_payload"`
}

func (h *Handler) withQR(t *model.Table) tableResponse {
	return tableResponse{Table: t, QRPayload: h.baseURL + "/t/" + t.Code}
}

type createRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := types.ValidateRequired("name", req.Name); err != nil {
		types.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if req.Code != "" {
		if err := types.ValidateTableCode(req.Code); err != nil {
			types.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
	}

	if err := h.plans.CheckTableLimit(admin.ID); err != nil {
		var limitErr *plan.ErrLimitReached
		if errors.As(err, &limitErr) {
			types.WriteError(w, http.StatusForbidden, "plan_limit", err.Error())
			return
		}
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to check plan limit")
		return
	}

	created, err := h.store.Create(admin.ID, req.Name, req.Code)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "create_failed", err.Error())
		return
	}
	types.WriteJSON(w, http.StatusCreated, h.withQR(created))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())

	tables, err := h.store.List(admin.ID)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list tables")
		return
	}

	responses := make([]tableResponse, 0, len(tables))
	for _, t := range tables {
		responses = append(responses, h.withQR(t))
	}
	types.WriteJSON(w, http.StatusOK, responses)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid table id")
		return
	}

	t, err := h.store.Get(admin.ID, id)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Table not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to get table")
		return
	}
	types.WriteJSON(w, http.StatusOK, h.withQR(t))
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid table id")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := types.ValidateRequired("name", req.Name); err != nil {
		types.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	t, err := h.store.Rename(admin.ID, id, req.Name)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Table not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to rename table")
		return
	}
	types.WriteJSON(w, http.StatusOK, t)
}

// Release marks a table available again once the guests have left.
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid table id")
		return
	}

	t, err := h.store.Release(admin.ID, id)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Table not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to release table")
		return
	}
	types.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid table id")
		return
	}

	err = h.store.Delete(admin.ID, id)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Table not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusConflict, "delete_failed", "Table has order history and cannot be deleted")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
