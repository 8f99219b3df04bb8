package handlers

import (
	"net/http"

	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/pages"
	"github.com/diewo77/go-facturas/internal/store"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	store store.ProductStore
	log   *logger.Logger
}

func NewProductHandler(s store.ProductStore, log *logger.Logger) *ProductHandler {
	return &ProductHandler{store: s, log: log}
}

type productListResponse struct {
	Products    []models.Product `json:"products"`
	Search      string           `json:"search"`
	Total       int              `json:"total"`
	ActiveCount int              `json:"activeCount"`
	TotalValue  decimal.Decimal  `json:"totalValue"`
	// Defaults pre-fills the add dialog.
	Defaults pages.ProductForm `json:"defaults"`
	Units    []string          `json:"units"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := pages.LoadProductList(r.Context(), h.store, r.URL.Query().Get("q"))
	if err != nil {
		fail(w, r, h.log, err, "load_failed")
		return
	}
	httpx.JSON(w, http.StatusOK, productListResponse{
		Products:    list.Filtered(),
		Search:      list.Search,
		Total:       len(list.Products),
		ActiveCount: list.ActiveCount(),
		TotalValue:  list.TotalValue(),
		Defaults:    pages.DefaultProductForm(),
		Units:       models.Units,
	})
}

// Create starts from the default form, so omitted fields get tax 21, unit
// "unidad" and active.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	form := pages.DefaultProductForm()
	if err := httpx.Decode(r, &form); err != nil {
		badJSON(w, r)
		return
	}
	p, err := form.Save(r.Context(), h.store, 0)
	if err != nil {
		fail(w, r, h.log, err, "save_failed")
		return
	}
	h.log.InfowCtx(r.Context(), "product created", "product_id", p.ID)
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r)
	if !ok {
		badID(w, r)
		return
	}
	var patch models.ProductPatch
	if err := httpx.Decode(r, &patch); err != nil {
		badJSON(w, r)
		return
	}
	if v := pages.ValidateProductPatch(patch); !v.Empty() {
		invalid(w, r, v)
		return
	}
	p, err := h.store.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		fail(w, r, h.log, err, "save_failed")
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r)
	if !ok {
		badID(w, r)
		return
	}
	if err := h.store.DeleteProduct(r.Context(), id); err != nil {
		fail(w, r, h.log, err, "delete_failed")
		return
	}
	h.log.InfowCtx(r.Context(), "product deleted", "product_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Toggle flips the active flag. The current value is read from the catalog
// list since the store has no single-product read.
func (h *ProductHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r)
	if !ok {
		badID(w, r)
		return
	}
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		fail(w, r, h.log, err, "load_failed")
		return
	}
	current, found := lo.Find(products, func(p models.Product) bool { return p.ID == id })
	if !found {
		httpx.Notify(w, r, http.StatusNotFound, "not_found", nil)
		return
	}
	p, err := pages.ToggleActive(r.Context(), h.store, current)
	if err != nil {
		fail(w, r, h.log, err, "save_failed")
		return
	}
	h.log.InfowCtx(r.Context(), "product toggled", "product_id", p.ID, "active", p.Active)
	httpx.JSON(w, http.StatusOK, p)
}
