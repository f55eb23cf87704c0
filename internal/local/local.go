// Package local resolves the venue (local) a request operates on. Every
// business route is scoped to exactly one local; the identifier travels in
// the X-Local-ID header and is carried through the request context.
package local

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/foodflow/pos-api/internal/common"
)

// HeaderName is the request header carrying the local identifier.
const HeaderName = "X-Local-ID"

type contextKey string

const localContextKey contextKey = "local.id"

// With stores the local identifier inside the context.
func With(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, localContextKey, id)
}

// From extracts the local identifier from the context if available.
func From(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(localContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Require is a middleware that rejects requests without a parseable
// X-Local-ID header. Routes mounted behind it can assume From succeeds.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(HeaderName))
		if raw == "" {
			common.JSONError(w, http.StatusBadRequest, "LOCAL_REQUIRED", "missing "+HeaderName+" header", nil)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "LOCAL_INVALID", "malformed "+HeaderName+" header", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(With(r.Context(), id)))
	})
}
