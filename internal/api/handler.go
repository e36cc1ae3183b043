// Package api exposes the FEP ops surface: liveness/readiness probes,
// Prometheus metrics, the currently loaded rule document, a manual
// reload trigger, and a live-event debug dump.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rgregg/frigate-event-processor/internal/config"
	"github.com/rgregg/frigate-event-processor/internal/metrics"
)

// EngineView is the narrow read surface Handler needs from the
// Admission Engine, kept separate from internal/admission to avoid an
// import cycle and to make the handler trivially testable with a fake.
type EngineView interface {
	QueueLen() int
	QueueCap() int
	EventCount() int
	Snapshot() []EventSummary
}

// EventSummary is a diagnostic projection of one live event.
type EventSummary struct {
	EventID string `json:"event_id"`
	Camera  string `json:"camera"`
	Label   string `json:"label"`
	Status  string `json:"status"`
	Alerted bool   `json:"alerted"`
	Reason  string `json:"reason,omitempty"`
}

// Handler holds the HTTP handler dependencies.
type Handler struct {
	engine EngineView
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers every route.
func New(engine EngineView, loader *config.Loader) http.Handler {
	h := &Handler{engine: engine, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())
	h.mux.HandleFunc("GET /v1/rules", h.listRules)
	h.mux.HandleFunc("POST /v1/rules/reload", h.reloadRules)
	h.mux.HandleFunc("GET /v1/events", h.listEvents)

	return loggingMiddleware(h.mux)
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if the inbound frame queue is over 80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := 0.0
	if cap := h.engine.QueueCap(); cap > 0 {
		util = float64(h.engine.QueueLen()) / float64(cap)
	}
	metrics.InboundQueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}

// GET /v1/rules — dump the currently loaded config document.
func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.loader.Config())
}

// POST /v1/rules/reload — force a config reload from disk.
func (h *Handler) reloadRules(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"alerts":   len(cfg.Alerts),
	})
}

// GET /v1/events — diagnostic dump of live Event Table entries.
func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  h.engine.EventCount(),
		"events": h.engine.Snapshot(),
	})
}
