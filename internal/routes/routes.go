package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/forthrightphysio-crypto/pushrelay/internal/services"
	"github.com/forthrightphysio-crypto/pushrelay/internal/streaming"
	"github.com/forthrightphysio-crypto/pushrelay/pkg/metrics"
)

// Handlers bundles everything the HTTP surface needs.
type Handlers struct {
	dispatcher *services.Dispatcher
	scheduler  *services.Scheduler
	registry   Registry
	responder  *streaming.Responder
	metrics    *metrics.Metrics
	logger     *slog.Logger
	started    time.Time
}

func NewHandlers(
	dispatcher *services.Dispatcher,
	scheduler *services.Scheduler,
	registry Registry,
	responder *streaming.Responder,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		dispatcher: dispatcher,
		scheduler:  scheduler,
		registry:   registry,
		responder:  responder,
		metrics:    m,
		logger:     logger,
		started:    time.Now(),
	}
}

// NewRouter wires the notification, scheduling, registry and media endpoints
// plus health/metrics for monitoring.
func (h *Handlers) NewRouter() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/send", h.handleSend)
	mux.HandleFunc("POST /v1/broadcast", h.handleBroadcast)
	mux.HandleFunc("POST /v1/schedule", h.handleSchedule)
	mux.HandleFunc("GET /v1/schedule/{id}", h.handleScheduleGet)
	mux.HandleFunc("DELETE /v1/schedule/{id}", h.handleScheduleCancel)

	mux.HandleFunc("POST /v1/tokens", h.handleTokenRegister)
	mux.HandleFunc("GET /v1/tokens", h.handleTokenList)
	mux.HandleFunc("DELETE /v1/tokens/{token}", h.handleTokenRemove)

	mux.HandleFunc("GET /v1/media/{name...}", h.handleMedia)

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", h.metrics.Handler())

	return mux
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "relay service healthy",
		"meta": map[string]interface{}{
			"uptime_seconds": int(time.Since(h.started).Seconds()),
			"timestamp":      time.Now().UTC(),
		},
	})
}
