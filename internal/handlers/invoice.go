package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/pages"
	"github.com/diewo77/go-facturas/internal/services"
	"github.com/diewo77/go-facturas/internal/store"
	"github.com/diewo77/go-facturas/validation"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
	store    store.Store
	log      *logger.Logger
	now      func() time.Time
}

func NewInvoiceHandler(invoices *services.InvoiceService, s store.Store, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, store: s, log: log, now: time.Now}
}

type historyResponse struct {
	Rows    []pages.InvoiceRow   `json:"rows"`
	Search  string               `json:"search"`
	Status  string               `json:"status"`
	Period  string               `json:"period"`
	Summary pages.HistorySummary `json:"summary"`
}

// history loads every invoice and applies the q/status/period query filters.
func (h *InvoiceHandler) history(r *http.Request) (*pages.InvoiceHistory, validation.Violations, error) {
	hist, err := pages.LoadInvoiceHistory(r.Context(), h.store, h.store)
	if err != nil {
		return nil, nil, err
	}
	q := r.URL.Query()
	hist.Search = q.Get("q")
	v := validation.Violations{}
	if s := q.Get("status"); s != "" {
		validation.OneOf("status", s, append([]string{pages.StatusAll}, statusNames()...), v)
		hist.Status = s
	}
	if p := q.Get("period"); p != "" {
		validation.OneOf("period", p, pages.Periods, v)
		hist.Period = p
	}
	return hist, v, nil
}

func statusNames() []string {
	return lo.Map(models.InvoiceStatuses, func(s models.InvoiceStatus, _ int) string { return string(s) })
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	hist, v, err := h.history(r)
	if err != nil {
		fail(w, r, h.log, err, "load_failed")
		return
	}
	if !v.Empty() {
		invalid(w, r, v)
		return
	}
	now := h.now()
	httpx.JSON(w, http.StatusOK, historyResponse{
		Rows:    hist.Filtered(now),
		Search:  hist.Search,
		Status:  hist.Status,
		Period:  hist.Period,
		Summary: hist.Summary(now),
	})
}

// Export sends the filtered history as an xlsx workbook.
func (h *InvoiceHandler) Export(w http.ResponseWriter, r *http.Request) {
	hist, v, err := h.history(r)
	if err != nil {
		fail(w, r, h.log, err, "load_failed")
		return
	}
	if !v.Empty() {
		invalid(w, r, v)
		return
	}
	now := h.now()
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=facturas-%s.xlsx", now.Format("20060102")))
	if err := writeInvoicesXLSX(w, hist.Filtered(now), httpx.Lang(r)); err != nil {
		h.log.ErrorwCtx(r.Context(), "export failed", "error", err)
		w.Header().Del("Content-Disposition")
		httpx.Notify(w, r, http.StatusInternalServerError, "export_failed", nil)
	}
}

type composerResponse struct {
	*pages.InvoiceComposer
	Totals   models.Totals          `json:"totals"`
	Statuses []models.InvoiceStatus `json:"statuses"`
}

// New bootstraps the composer: proposed number, dates, customers and active products.
func (h *InvoiceHandler) New(w http.ResponseWriter, r *http.Request) {
	comp, err := pages.NewInvoiceComposer(r.Context(), h.store, h.store, h.invoices, h.now())
	if err != nil {
		fail(w, r, h.log, err, "load_failed")
		return
	}
	httpx.JSON(w, http.StatusOK, composerResponse{
		InvoiceComposer: comp,
		Totals:          comp.Totals(),
		Statuses:        []models.InvoiceStatus{models.InvoiceStatusDraft, models.InvoiceStatusSent},
	})
}

type lineRequest struct {
	// ProductID is absent for a custom line.
	ProductID   *uint            `json:"product_id"`
	Description string           `json:"description" validate:"required_without=ProductID"`
	Quantity    decimal.Decimal  `json:"quantity" validate:"gte=0"`
	UnitPrice   *decimal.Decimal `json:"unit_price" validate:"omitempty,gte=0"`
	TaxRate     *decimal.Decimal `json:"tax_rate" validate:"omitempty,gte=0,lte=100"`
}

type invoiceRequest struct {
	InvoiceNumber string               `json:"invoice_number"`
	CustomerID    uint                 `json:"customer_id" validate:"required"`
	IssueDate     models.Date          `json:"issue_date"`
	DueDate       models.Date          `json:"due_date"`
	Notes         string               `json:"notes"`
	Status        models.InvoiceStatus `json:"status" validate:"omitempty,oneof=draft sent"`
	Lines         []lineRequest        `json:"lines" validate:"required,min=1,dive"`
}

// presetNumber keeps a caller-chosen number and only asks the generator when there is none.
type presetNumber struct {
	number string
	next   pages.NumberSource
}

func (p presetNumber) NextNumber(ctx context.Context) string {
	if p.number != "" {
		return p.number
	}
	return p.next.NextNumber(ctx)
}

// compose replays the request on a fresh composer so that catalog prices,
// tax rates and active flags come from the store, not from the client.
func (h *InvoiceHandler) compose(ctx context.Context, req invoiceRequest) (models.NewInvoice, error) {
	comp, err := pages.NewInvoiceComposer(ctx, h.store, h.store, presetNumber{req.InvoiceNumber, h.invoices}, h.now())
	if err != nil {
		return models.NewInvoice{}, err
	}
	if !req.IssueDate.IsZero() {
		comp.IssueDate = req.IssueDate
		comp.DueDate = req.IssueDate.AddDays(models.DefaultDueDays)
	}
	if !req.DueDate.IsZero() {
		comp.DueDate = req.DueDate
	}
	comp.Notes = req.Notes

	v := validation.Violations{}
	if !comp.SelectCustomer(req.CustomerID) {
		v["customer_id"] = "invalid_choice"
	}
	for i, l := range req.Lines {
		var line *pages.ComposerLine
		if l.ProductID != nil {
			var ok bool
			line, ok = comp.AddProductLine(*l.ProductID, l.Quantity, l.UnitPrice, l.Description)
			if !ok {
				v[fmt.Sprintf("lines[%d].product_id", i)] = "invalid_choice"
				continue
			}
		} else {
			line = comp.AddCustomLine(l.Description, l.Quantity, lo.FromPtr(l.UnitPrice))
		}
		if l.TaxRate != nil {
			if err := comp.UpdateLine(line.LineID, pages.LineEdit{TaxRate: l.TaxRate}); err != nil {
				return models.NewInvoice{}, err
			}
		}
	}
	if err := v.Err(); err != nil {
		return models.NewInvoice{}, err
	}

	status := req.Status
	if status == "" {
		status = models.InvoiceStatusDraft
	}
	return comp.Build(status)
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := httpx.Decode(r, &req); err != nil {
		badJSON(w, r)
		return
	}
	if v := validation.Struct(req); !v.Empty() {
		invalid(w, r, v)
		return
	}
	n, err := h.compose(r.Context(), req)
	if err != nil {
		fail(w, r, h.log, err, "load_failed")
		return
	}
	inv, err := h.invoices.Create(r.Context(), n)
	if err != nil {
		fail(w, r, h.log, err, "save_failed")
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

type invoiceDetail struct {
	*models.Invoice
	Customer *models.Customer `json:"customer"`
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r)
	if !ok {
		badID(w, r)
		return
	}
	inv, err := h.invoices.Get(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err, "load_failed")
		return
	}
	customers, err := h.store.ListCustomers(r.Context())
	if err != nil {
		fail(w, r, h.log, err, "load_failed")
		return
	}
	detail := invoiceDetail{Invoice: inv}
	if c, found := lo.Find(customers, func(c models.Customer) bool { return c.ID == inv.CustomerID }); found {
		detail.Customer = &c
	}
	httpx.JSON(w, http.StatusOK, detail)
}

type statusRequest struct {
	Status models.InvoiceStatus `json:"status" validate:"required"`
}

func (h *InvoiceHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r)
	if !ok {
		badID(w, r)
		return
	}
	var req statusRequest
	if err := httpx.Decode(r, &req); err != nil {
		badJSON(w, r)
		return
	}
	if v := validation.Struct(req); !v.Empty() {
		invalid(w, r, v)
		return
	}
	inv, err := h.invoices.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		fail(w, r, h.log, err, "save_failed")
		return
	}
	h.log.InfowCtx(r.Context(), "invoice status changed", "invoice_id", id, "status", inv.Status)
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r)
	if !ok {
		badID(w, r)
		return
	}
	if err := h.invoices.Delete(r.Context(), id); err != nil {
		fail(w, r, h.log, err, "delete_failed")
		return
	}
	h.log.InfowCtx(r.Context(), "invoice deleted", "invoice_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *InvoiceHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r)
	if !ok {
		badID(w, r)
		return
	}
	inv, err := h.invoices.Duplicate(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err, "save_failed")
		return
	}
	h.log.InfowCtx(r.Context(), "invoice duplicated", "source_id", id, "invoice_id", inv.ID, "number", inv.InvoiceNumber)
	httpx.JSON(w, http.StatusCreated, inv)
}
