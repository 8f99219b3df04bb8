// Package handlers exposes the screens as JSON endpoints.
package handlers

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/i18n"
	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/pages"
	"github.com/diewo77/go-facturas/internal/services"
	"github.com/diewo77/go-facturas/internal/store"
	"github.com/diewo77/go-facturas/validation"
)

// fail maps err to a status and a notification code. failCode is used for
// data layer failures (load_failed, save_failed, delete_failed).
func fail(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error, failCode string) {
	if v, ok := validation.AsViolations(err); ok {
		httpx.Notify(w, r, http.StatusUnprocessableEntity, "validation_failed", i18n.Localize(httpx.Lang(r), v))
		return
	}
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, pages.ErrLineNotFound):
		httpx.Notify(w, r, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrInvalidStatus):
		httpx.Notify(w, r, http.StatusUnprocessableEntity, "invalid_status", nil)
	case errors.Is(err, services.ErrInvalidInvoice):
		httpx.Notify(w, r, http.StatusUnprocessableEntity, "validation_failed", nil)
	case errors.Is(err, store.ErrDataLayer):
		log.ErrorwCtx(r.Context(), "data layer failure", "path", r.URL.Path, "error", err)
		httpx.Notify(w, r, http.StatusBadGateway, failCode, nil)
	default:
		log.ErrorwCtx(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		httpx.Notify(w, r, http.StatusInternalServerError, "internal_error", nil)
	}
}

func badJSON(w http.ResponseWriter, r *http.Request) {
	httpx.Notify(w, r, http.StatusBadRequest, "invalid_json", nil)
}

func badID(w http.ResponseWriter, r *http.Request) {
	httpx.Notify(w, r, http.StatusBadRequest, "invalid_id", nil)
}

func invalid(w http.ResponseWriter, r *http.Request, v validation.Violations) {
	httpx.Notify(w, r, http.StatusUnprocessableEntity, "validation_failed", i18n.Localize(httpx.Lang(r), v))
}
