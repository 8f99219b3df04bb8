package handlers

import (
	"net/http"

	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/pages"
	"github.com/diewo77/go-facturas/internal/store"
)

type CustomerHandler struct {
	store store.CustomerStore
	log   *logger.Logger
}

func NewCustomerHandler(s store.CustomerStore, log *logger.Logger) *CustomerHandler {
	return &CustomerHandler{store: s, log: log}
}

type customerListResponse struct {
	Customers []models.Customer `json:"customers"`
	Search    string            `json:"search"`
	Total     int               `json:"total"`
}

func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := pages.LoadCustomerList(r.Context(), h.store, r.URL.Query().Get("q"))
	if err != nil {
		fail(w, r, h.log, err, "load_failed")
		return
	}
	httpx.JSON(w, http.StatusOK, customerListResponse{
		Customers: list.Filtered(),
		Search:    list.Search,
		Total:     len(list.Customers),
	})
}

func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form pages.CustomerForm
	if err := httpx.Decode(r, &form); err != nil {
		badJSON(w, r)
		return
	}
	c, err := form.Save(r.Context(), h.store, 0)
	if err != nil {
		fail(w, r, h.log, err, "save_failed")
		return
	}
	h.log.InfowCtx(r.Context(), "customer created", "customer_id", c.ID)
	httpx.JSON(w, http.StatusCreated, c)
}

// Update applies a partial update; absent fields are left untouched.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r)
	if !ok {
		badID(w, r)
		return
	}
	var patch models.CustomerPatch
	if err := httpx.Decode(r, &patch); err != nil {
		badJSON(w, r)
		return
	}
	if v := pages.ValidateCustomerPatch(patch); !v.Empty() {
		invalid(w, r, v)
		return
	}
	c, err := h.store.UpdateCustomer(r.Context(), id, patch)
	if err != nil {
		fail(w, r, h.log, err, "save_failed")
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r)
	if !ok {
		badID(w, r)
		return
	}
	if err := h.store.DeleteCustomer(r.Context(), id); err != nil {
		fail(w, r, h.log, err, "delete_failed")
		return
	}
	h.log.InfowCtx(r.Context(), "customer deleted", "customer_id", id)
	w.WriteHeader(http.StatusNoContent)
}
