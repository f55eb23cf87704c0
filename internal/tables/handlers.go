package tables

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/foodflow/pos-api/internal/common"
)

// Handler exposes table and order endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the tables and orders surface on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/tables", h.ListTables)
	r.Post("/tables", h.CreateTable)
	r.Get("/tables/{id}/orders", h.TableOrders)
	r.Post("/tables/{id}/open", h.OpenTable)
	r.Post("/tables/{id}/close", h.CloseTable)
	r.Get("/orders/{id}", h.GetOrder)
	r.Post("/orders/{id}/items", h.AddItem)
	r.Patch("/orders/{id}/items/{itemID}", h.PatchItem)
	r.Post("/orders/{id}/items/{itemID}/extras", h.AddExtra)
	r.Delete("/orders/{id}/items/{itemID}", h.RemoveItem)
	r.Post("/orders/{id}/discounts", h.AddDiscount)
	r.Post("/orders/{id}/reopen", h.ReopenOrder)
}

// ListTables handles GET /api/v1/tables.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListTables(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// CreateTable handles POST /api/v1/tables.
func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "malformed request body", nil)
		return
	}
	t, err := h.service.CreateTable(r.Context(), in.Label)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": t})
}

// TableOrders handles GET /api/v1/tables/{id}/orders.
func (h *Handler) TableOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 20)
	if limit < 1 || limit > 100 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "limit must be between 1 and 100", nil)
		return
	}
	rows, err := h.service.TableOrders(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// OpenTable handles POST /api/v1/tables/{id}/open.
func (h *Handler) OpenTable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.service.OpenTable(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

// CloseTable handles POST /api/v1/tables/{id}/close.
func (h *Handler) CloseTable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in CloseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "malformed request body", nil)
		return
	}
	view, err := h.service.CloseTable(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// GetOrder handles GET /api/v1/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	view, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddItem handles POST /api/v1/orders/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in ItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "malformed request body", nil)
		return
	}
	view, err := h.service.AddItem(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// AddExtra handles POST /api/v1/orders/{id}/items/{itemID}/extras.
func (h *Handler) AddExtra(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	var in ExtraInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "malformed request body", nil)
		return
	}
	view, err := h.service.AddExtra(r.Context(), id, itemID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// PatchItem handles PATCH /api/v1/orders/{id}/items/{itemID}.
func (h *Handler) PatchItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	var in ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "malformed request body", nil)
		return
	}
	view, err := h.service.PatchItem(r.Context(), id, itemID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemoveItem handles DELETE /api/v1/orders/{id}/items/{itemID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	view, err := h.service.RemoveItem(r.Context(), id, itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddDiscount handles POST /api/v1/orders/{id}/discounts.
func (h *Handler) AddDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in DiscountInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "malformed request body", nil)
		return
	}
	view, err := h.service.AddManualDiscount(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// ReopenOrder handles POST /api/v1/orders/{id}/reopen.
func (h *Handler) ReopenOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	view, err := h.service.ReopenOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "malformed "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
