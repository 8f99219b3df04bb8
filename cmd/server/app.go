package main

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/handlers"
	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/google/uuid"
)

// Handlers groups the endpoint handlers mounted by App.
type Handlers struct {
	Health    *handlers.HealthHandler
	Dashboard *handlers.DashboardHandler
	Customers *handlers.CustomerHandler
	Products  *handlers.ProductHandler
	Invoices  *handlers.InvoiceHandler
}

// App is the main application handler that sets up all routes.
type App struct {
	mux *http.ServeMux
	h   Handlers
	log *logger.Logger
}

// NewApp creates a new application with all routes configured.
func NewApp(h Handlers, log *logger.Logger) *App {
	app := &App{mux: http.NewServeMux(), h: h, log: log}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	withRequestID(withLogging(a.log, withRecover(a.log, a.mux))).ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	a.mux.HandleFunc("GET /health", a.h.Health.Check)
	a.mux.HandleFunc("GET /healthz", a.h.Health.Check)

	dh := a.h.Dashboard
	a.mux.HandleFunc("GET /dashboard", dh.Get)
	a.mux.HandleFunc("GET /dashboard/stream", dh.Stream)

	ch := a.h.Customers
	a.mux.HandleFunc("GET /customers", ch.List)
	a.mux.HandleFunc("POST /customers", ch.Create)
	a.mux.HandleFunc("PATCH /customers/{id}", ch.Update)
	a.mux.HandleFunc("DELETE /customers/{id}", ch.Delete)

	ph := a.h.Products
	a.mux.HandleFunc("GET /products", ph.List)
	a.mux.HandleFunc("POST /products", ph.Create)
	a.mux.HandleFunc("PATCH /products/{id}", ph.Update)
	a.mux.HandleFunc("DELETE /products/{id}", ph.Delete)
	a.mux.HandleFunc("POST /products/{id}/toggle", ph.Toggle)

	ih := a.h.Invoices
	a.mux.HandleFunc("GET /invoices", ih.List)
	a.mux.HandleFunc("GET /invoices/export.xlsx", ih.Export)
	a.mux.HandleFunc("GET /invoices/new", ih.New)
	a.mux.HandleFunc("POST /invoices", ih.Create)
	a.mux.HandleFunc("GET /invoices/{id}", ih.Get)
	a.mux.HandleFunc("PATCH /invoices/{id}/status", ih.SetStatus)
	a.mux.HandleFunc("DELETE /invoices/{id}", ih.Delete)
	a.mux.HandleFunc("POST /invoices/{id}/duplicate", ih.Duplicate)
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

const requestIDHeader = "X-Request-ID"

// withRequestID tags the request context with the caller's X-Request-ID or a new one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying flusher.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// withLogging adds request logging middleware.
func withLogging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.InfowCtx(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// withRecover turns a handler panic into a 500.
func withRecover(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				log.ErrorwCtx(r.Context(), "panic serving request", "panic", p, "stack", string(debug.Stack()))
				httpx.Notify(w, r, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
