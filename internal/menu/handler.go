// internal/menu/handler.go
package menu

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markb/tably/internal/plan"
	"github.com/markb/tably/internal/realtime"
	"github.com/markb/tably/internal/storage"
	"github.com/markb/tably/internal/types"
)

// Handler serves the catalog endpoints of the admin API. All routes run
// behind the auth middleware; the admin comes from the request context.
type Handler struct {
	store   *Store
	plans   *plan.Service
	images  *storage.Service
	emitter *realtime.Emitter
}

// NewHandler creates a catalog handler.
func NewHandler(store *Store, plans *plan.Service, images *storage.Service, emitter *realtime.Emitter) *Handler {
	return &Handler{store: store, plans: plans, images: images, emitter: emitter}
}

// RegisterRoutes mounts the catalog routes on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/categories", h.ListCategories)
	r.Post("/categories", h.CreateCategory)
	r.Put("/categories/{id}", h.UpdateCategory)
	r.Delete("/categories/{id}", h.DeleteCategory)

	r.Get("/ingredients", h.ListIngredients)
	r.Post("/ingredients", h.CreateIngredient)
	r.Put("/ingredients/{id}/stock", h.UpdateIngredientStock)
	r.Delete("/ingredients/{id}", h.DeleteIngredient)

	r.Get("/menus", h.ListMenus)
	r.Post("/menus", h.CreateMenu)
	r.Get("/menus/{id}", h.GetMenu)
	r.Put("/menus/{id}", h.UpdateMenu)
	r.Patch("/menus/{id}/availability", h.SetAvailability)
	r.Post("/menus/{id}/image", h.UploadImage)
	r.Delete("/menus/{id}", h.DeleteMenu)
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

type categoryRequest struct {
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := types.ValidateRequired("name", req.Name); err != nil {
		types.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	category, err := h.store.CreateCategory(admin.ID, req.Name, req.Icon, req.SortOrder)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "create_failed", err.Error())
		return
	}
	types.WriteJSON(w, http.StatusCreated, category)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())

	categories, err := h.store.ListCategories(admin.ID)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list categories")
		return
	}
	types.WriteJSON(w, http.StatusOK, categories)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid category id")
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := types.ValidateRequired("name", req.Name); err != nil {
		types.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	category, err := h.store.UpdateCategory(admin.ID, id, req.Name, req.Icon, req.SortOrder)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Category not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to update category")
		return
	}
	types.WriteJSON(w, http.StatusOK, category)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid category id")
		return
	}

	err = h.store.DeleteCategory(admin.ID, id)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Category not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ingredientRequest struct {
	Name  string  `json:"name"`
	Unit  string  `json:"unit"`
	Stock float64 `json:"stock"`
}

func (h *Handler) CreateIngredient(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())

	var req ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := types.ValidateRequired("name", req.Name); err != nil {
		types.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	ingredient, err := h.store.CreateIngredient(admin.ID, req.Name, req.Unit, req.Stock)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "create_failed", err.Error())
		return
	}
	types.WriteJSON(w, http.StatusCreated, ingredient)
}

func (h *Handler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())

	ingredients, err := h.store.ListIngredients(admin.ID)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list ingredients")
		return
	}
	types.WriteJSON(w, http.StatusOK, ingredients)
}

func (h *Handler) UpdateIngredientStock(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid ingredient id")
		return
	}

	var req struct {
		Stock float64 `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	ingredient, err := h.store.UpdateIngredientStock(admin.ID, id, req.Stock)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Ingredient not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to update stock")
		return
	}
	types.WriteJSON(w, http.StatusOK, ingredient)
}

func (h *Handler) DeleteIngredient(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid ingredient id")
		return
	}

	err = h.store.DeleteIngredient(admin.ID, id)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Ingredient not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to delete ingredient")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateMenuInput(in MenuInput) error {
	if err := types.ValidateRequired("name", in.Name); err != nil {
		return err
	}
	return types.ValidatePriceCents(in.PriceCents)
}

func (h *Handler) CreateMenu(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())

	var in MenuInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := validateMenuInput(in); err != nil {
		types.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.plans.CheckMenuLimit(admin.ID); err != nil {
		var limitErr *plan.ErrLimitReached
		if errors.As(err, &limitErr) {
			types.WriteError(w, http.StatusForbidden, "plan_limit", err.Error())
			return
		}
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to check plan limit")
		return
	}

	created, err := h.store.CreateMenu(admin.ID, in)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "create_failed", err.Error())
		return
	}

	h.emitter.MenuChanged(*created)
	types.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListMenus(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())

	menus, err := h.store.ListMenus(admin.ID, false)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list menus")
		return
	}
	types.WriteJSON(w, http.StatusOK, menus)
}

func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid menu id")
		return
	}

	item, err := h.store.GetMenu(admin.ID, id)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Menu not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to get menu")
		return
	}
	types.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) UpdateMenu(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid menu id")
		return
	}

	var in MenuInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := validateMenuInput(in); err != nil {
		types.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	updated, err := h.store.UpdateMenu(admin.ID, id, in)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Menu not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to update menu")
		return
	}

	h.emitter.MenuChanged(*updated)
	types.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid menu id")
		return
	}

	var req struct {
		Available bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	updated, err := h.store.SetMenuAvailability(admin.ID, id, req.Available)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Menu not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to update availability")
		return
	}

	h.emitter.MenuChanged(*updated)
	types.WriteJSON(w, http.StatusOK, updated)
}

// UploadImage accepts a multipart upload and stores the image under the
// tenant's prefix. An existing image is replaced and its blob removed.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid menu id")
		return
	}

	current, err := h.store.GetMenu(admin.ID, id)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Menu not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to get menu")
		return
	}

	if err := r.ParseMultipartForm(storage.MaxImageSize); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid multipart body")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Missing image file")
		return
	}
	defer file.Close()

	key, err := h.images.SaveImage(r.Context(), admin.ID, header.Header.Get("Content-Type"), file)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "upload_failed", err.Error())
		return
	}

	updated, err := h.store.SetMenuImage(admin.ID, id, key)
	if err != nil {
		h.images.DeleteImage(r.Context(), key)
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to save image key")
		return
	}

	if current.ImageKey != "" {
		h.images.DeleteImage(r.Context(), current.ImageKey)
	}

	h.emitter.MenuChanged(*updated)
	types.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteMenu(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	id, err := idParam(r)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid menu id")
		return
	}

	current, err := h.store.GetMenu(admin.ID, id)
	if errors.Is(err, ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, "not_found", "Menu not found")
		return
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to get menu")
		return
	}

	if err := h.store.DeleteMenu(admin.ID, id); err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to delete menu")
		return
	}

	if current.ImageKey != "" {
		h.images.DeleteImage(r.Context(), current.ImageKey)
	}

	// No broadcast here: menu-updated promises a live row, and this one
	// is gone. Menu sessions pick the removal up on their next refresh.
	w.WriteHeader(http.StatusNoContent)
}
