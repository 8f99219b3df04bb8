package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/pages"
	"github.com/diewo77/go-facturas/internal/services"
)

// keepAlive is the interval of SSE comment lines sent to idle clients.
const keepAlive = 25 * time.Second

type DashboardHandler struct {
	stats     pages.StatsLoader
	broker    pages.Subscriber
	log       *logger.Logger
	keepAlive time.Duration

	closing   chan struct{}
	closeOnce sync.Once
}

func NewDashboardHandler(stats pages.StatsLoader, broker pages.Subscriber, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		stats:     stats,
		broker:    broker,
		log:       log,
		keepAlive: keepAlive,
		closing:   make(chan struct{}),
	}
}

// CloseStreams ends every open dashboard stream and refuses new ones.
// Register it with http.Server.RegisterOnShutdown.
func (h *DashboardHandler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// Get returns the counters. Store failures show as zeros.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	dash := pages.LoadDashboard(r.Context(), h.stats)
	httpx.JSON(w, http.StatusOK, dash.Stats())
}

// Stream is a server-sent event stream of the counters: one "stats" event on
// connect and one after every change to products, customers or invoices.
// Subscriptions are cancelled when the client goes away or CloseStreams runs.
func (h *DashboardHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := http.NewResponseController(w)

	select {
	case <-h.closing:
		httpx.Notify(w, r, http.StatusServiceUnavailable, "shutting_down", nil)
		return
	default:
	}

	dash := pages.LoadDashboard(ctx, h.stats)
	defer dash.Close()

	// Only the latest stats matter; a slow client skips intermediate ones.
	updates := make(chan services.DashboardStats, 1)
	push := func(s services.DashboardStats) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- s:
		default:
		}
	}
	if err := dash.Watch(ctx, h.broker, h.stats, push); err != nil {
		h.log.ErrorwCtx(ctx, "dashboard subscribe failed", "error", err)
		httpx.Notify(w, r, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	// The stream outlives SERVER_WRITE_TIMEOUT.
	_ = rc.SetWriteDeadline(time.Time{})

	if err := writeEvent(w, rc, dash.Stats()); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.log.InfowCtx(ctx, "dashboard stream closed")
			return
		case <-h.closing:
			h.log.InfowCtx(ctx, "dashboard stream closed for shutdown")
			return
		case s := <-updates:
			if err := writeEvent(w, rc, s); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, stats services.DashboardStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: stats\ndata: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}
