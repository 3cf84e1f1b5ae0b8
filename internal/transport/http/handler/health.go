package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// BackendPinger reports whether the CRM backend answers.
type BackendPinger interface {
	Ping(ctx context.Context) (string, error)
}

// HealthHandler handles health-check endpoints.
type HealthHandler struct {
	backend BackendPinger
}

func NewHealthHandler(backend BackendPinger) *HealthHandler { return &HealthHandler{backend: backend} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, r, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "backend":
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		msg, err := h.backend.Ping(ctx)
		if err != nil {
			writeError(w, r, http.StatusServiceUnavailable, "backend unreachable")
			return
		}
		writeJSON(w, r, http.StatusOK, MessageEnvelope{Message: msg})
	default:
		writeError(w, r, http.StatusBadRequest, "unknown action")
	}
}
