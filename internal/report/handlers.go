package report

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foodflow/pos-api/internal/common"
)

// Handler exposes the cash desk endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the cash desk surface.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/reports/daily", h.Daily)
	r.Get("/reports/history", h.History)
	r.Post("/reports/expenses", h.RegisterExpense)
	r.Post("/reports/close-day", h.CloseDay)
}

// Daily handles GET /api/v1/reports/daily?date=YYYY-MM-DD.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "date query parameter is required", nil)
		return
	}
	daily, err := h.service.DailyReport(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, daily)
}

// History handles GET /api/v1/reports/history?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "from and to query parameters are required", nil)
		return
	}
	days, err := h.service.History(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, days)
}

// RegisterExpense handles POST /api/v1/reports/expenses.
func (h *Handler) RegisterExpense(w http.ResponseWriter, r *http.Request) {
	var in ExpenseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "malformed request body", nil)
		return
	}
	expense, err := h.service.RegisterExpense(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, expense)
}

// CloseDay handles POST /api/v1/reports/close-day.
func (h *Handler) CloseDay(w http.ResponseWriter, r *http.Request) {
	day, err := h.service.CloseDay(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, day)
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
