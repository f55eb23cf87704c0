package promotions

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/foodflow/pos-api/internal/common"
	"github.com/foodflow/pos-api/internal/promo"
)

// Handler exposes promotion management endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the promotions surface on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/promotions", h.List)
	r.Post("/promotions", h.Create)
	r.Get("/promotions/{id}", h.Get)
	r.Put("/promotions/{id}", h.Update)
	r.Delete("/promotions/{id}", h.Delete)
	r.Post("/promotions/{id}/activate", h.Activate)
	r.Post("/promotions/{id}/deactivate", h.Deactivate)
	r.Put("/promotions/{id}/scope", h.SetScope)
}

// List handles GET /api/v1/promotions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Create handles POST /api/v1/promotions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "malformed request body", nil)
		return
	}
	dto, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": dto})
}

// Get handles GET /api/v1/promotions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	dto, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": dto})
}

// Update handles PUT /api/v1/promotions/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "malformed request body", nil)
		return
	}
	dto, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": dto})
}

// Delete handles DELETE /api/v1/promotions/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activate handles POST /api/v1/promotions/{id}/activate.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

// Deactivate handles POST /api/v1/promotions/{id}/deactivate.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	if err := h.service.SetActive(r.Context(), id, active); err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": id, "active": active}})
}

// SetScope handles PUT /api/v1/promotions/{id}/scope.
func (h *Handler) SetScope(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var entries []promo.ScopeEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "malformed request body", nil)
		return
	}
	dto, err := h.service.SetScope(r.Context(), id, entries)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": dto})
}

func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "malformed id", nil)
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
