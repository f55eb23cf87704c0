package clock

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/foodflow/pos-api/internal/common"
)

// Handler exposes the dev-only time-travel endpoint.
type Handler struct {
	Clock *Clock
}

type offsetRequest struct {
	Offset string `json:"offset"`
}

// SetOffset handles POST /api/v1/dev/clock. The body carries a Go duration
// string such as "48h" or "-30m"; an empty value resets the clock.
func (h Handler) SetOffset(w http.ResponseWriter, r *http.Request) {
	if h.Clock == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "clock not configured", nil)
		return
	}
	var req offsetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	var offset time.Duration
	if req.Offset != "" {
		parsed, err := time.ParseDuration(req.Offset)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid duration", err.Error())
			return
		}
		offset = parsed
	}
	if err := h.Clock.SetOffset(offset); err != nil {
		if errors.Is(err, ErrOffsetDisabled) {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "time travel is disabled", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "set clock offset", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"offset": h.Clock.Offset().String(),
		"now":    h.Clock.Now().Format(time.RFC3339),
	}})
}
