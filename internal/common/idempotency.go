package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem guards order mutations with an Idempotency-Key middleware backed by
// Redis. The reservation key mixes the venue header, method and path with the
// client key, so the same key sent to a different endpoint or venue is a
// distinct request rather than a replay.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func reservationKey(r *http.Request, key string) string {
	h := sha256.New()
	h.Write([]byte(r.Header.Get("X-Local-ID")))
	h.Write([]byte{'\n'})
	h.Write([]byte(r.Method))
	h.Write([]byte{'\n'})
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{'\n'})
	h.Write([]byte(key))
	return "idem:" + hex.EncodeToString(h.Sum(nil))
}

// Middleware reserves the request's idempotency key before the handler runs.
// A second request with the same key, venue, method and path inside the TTL
// answers 409 without reaching the handler. Requests without a key pass
// through untouched.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := reservationKey(r, header)
		ok, err := i.R.SetNX(ctx, key, "locked", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// ensure the key expires even if handler panics
			_ = i.R.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
