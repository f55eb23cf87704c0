// Package health exposes the liveness and readiness probes. Readiness
// reflects the two stores the API cannot serve without: postgres (orders,
// promotions, catalog) and redis (catalog cache, idempotency, rate limits).
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Checker probes the backing stores.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// draining flips on during graceful shutdown so the load balancer stops
// routing new requests while in-flight ones finish.
var draining atomic.Bool

// SetReady toggles the readiness gate. main calls SetReady(false) when
// shutdown begins.
func SetReady(ready bool) {
	draining.Store(!ready)
}

// Handler serves the probe endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Live reports process liveness only; it never consults the stores.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness: the shutdown gate plus one probe per store.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	probes := map[string]string{
		"postgres": probe(func() error { return h.Checker.PingDB(ctx, h.dbTimeout()) }),
		"redis":    probe(func() error { return h.Checker.PingRedis(ctx, h.redisTimeout()) }),
	}

	status := http.StatusOK
	for _, result := range probes {
		if result != "ok" {
			status = http.StatusServiceUnavailable
			break
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(probes)
}

func probe(ping func() error) string {
	if err := ping(); err != nil {
		return err.Error()
	}
	return "ok"
}

func (h Handler) dbTimeout() time.Duration {
	if h.DBTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.DBTimeout
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}
