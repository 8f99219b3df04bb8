package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/logger"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
	log   *logger.Logger
}

func NewHealthHandler(s Pinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{store: s, log: log}
}

// Check reports 200 when the store answers, 503 otherwise.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.log.WarnwCtx(r.Context(), "health check failed", "error", err)
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
