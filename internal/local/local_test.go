package local

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	id := uuid.New()
	ctx := With(context.Background(), id)

	got, ok := From(ctx)
	require.True(t, ok)
	require.Equal(t, id, got)

	_, ok = From(context.Background())
	require.False(t, ok)

	_, ok = From(With(context.Background(), uuid.Nil))
	require.False(t, ok)
}

func TestRequireMiddleware(t *testing.T) {
	id := uuid.New()
	var seen uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := From(r.Context())
		require.True(t, ok)
		seen = got
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/tables", nil)
	req.Header.Set(HeaderName, id.String())
	rec := httptest.NewRecorder()
	Require(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, id, seen)
}

func TestRequireMiddlewareRejectsMissingHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/tables", nil)
	rec := httptest.NewRecorder()
	Require(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "LOCAL_REQUIRED")
}

func TestRequireMiddlewareRejectsMalformedHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/tables", nil)
	req.Header.Set(HeaderName, "not-a-uuid")
	rec := httptest.NewRecorder()
	Require(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "LOCAL_INVALID")
}
