package pages

import (
	"context"
	"time"

	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/store"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Period filters.
const (
	PeriodAll      = "all"
	PeriodLast30   = "30days"
	PeriodLast90   = "90days"
	PeriodThisYear = "thisyear"
)

// StatusAll disables the status filter.
const StatusAll = "all"

// Periods lists the accepted period filters.
var Periods = []string{PeriodAll, PeriodLast30, PeriodLast90, PeriodThisYear}

// InvoiceRow is an invoice joined with its customer's display fields.
type InvoiceRow struct {
	models.Invoice
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

// InvoiceHistory is the invoice list screen with its filters.
type InvoiceHistory struct {
	Rows   []InvoiceRow `json:"rows"`
	Search string       `json:"search"`
	Status string       `json:"status"`
	Period string       `json:"period"`
}

// MonthTotal is the revenue and invoice count of one calendar month.
type MonthTotal struct {
	Month    time.Month      `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Invoices int             `json:"invoices"`
}

// HistorySummary is computed over every invoice, ignoring the filters.
type HistorySummary struct {
	TotalInvoices int                          `json:"totalInvoices"`
	Revenue       decimal.Decimal              `json:"revenue"`
	Pending       decimal.Decimal              `json:"pending"`
	Overdue       decimal.Decimal              `json:"overdue"`
	StatusCounts  map[models.InvoiceStatus]int `json:"statusCounts"`
	Monthly       []MonthTotal                 `json:"monthly"`
}

// LoadInvoiceHistory reads invoices and customers and joins them in memory.
// Invoices whose customer no longer exists keep empty customer fields.
func LoadInvoiceHistory(ctx context.Context, invoices store.InvoiceStore, customers store.CustomerStore) (*InvoiceHistory, error) {
	invs, err := invoices.ListInvoices(ctx)
	if err != nil {
		return nil, err
	}
	custs, err := customers.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(custs, func(c models.Customer) uint { return c.ID })
	rows := lo.Map(invs, func(inv models.Invoice, _ int) InvoiceRow {
		row := InvoiceRow{Invoice: inv}
		if c, ok := byID[inv.CustomerID]; ok {
			row.CustomerName, row.CustomerEmail = c.Name, c.Email
		}
		return row
	})
	return &InvoiceHistory{Rows: rows, Status: StatusAll, Period: PeriodAll}, nil
}

// Filtered applies search, status and period filters relative to now.
func (h *InvoiceHistory) Filtered(now time.Time) []InvoiceRow {
	return lo.Filter(h.Rows, func(r InvoiceRow, _ int) bool {
		return matchesAny(h.Search, r.InvoiceNumber, r.CustomerName, r.CustomerEmail) &&
			h.matchesStatus(r) &&
			h.matchesPeriod(r, now)
	})
}

func (h *InvoiceHistory) matchesStatus(r InvoiceRow) bool {
	return h.Status == "" || h.Status == StatusAll || string(r.Status) == h.Status
}

func (h *InvoiceHistory) matchesPeriod(r InvoiceRow, now time.Time) bool {
	issued := r.IssueDate.Time
	switch h.Period {
	case PeriodLast30:
		return !issued.Before(now.AddDate(0, 0, -30))
	case PeriodLast90:
		return !issued.Before(now.AddDate(0, 0, -90))
	case PeriodThisYear:
		return issued.Year() == now.Year()
	default:
		return true
	}
}

// Summary returns the headline amounts and the monthly breakdown of the year of now.
func (h *InvoiceHistory) Summary(now time.Time) HistorySummary {
	sum := func(status models.InvoiceStatus) decimal.Decimal {
		return lo.Reduce(h.Rows, func(acc decimal.Decimal, r InvoiceRow, _ int) decimal.Decimal {
			if r.Status != status {
				return acc
			}
			return acc.Add(r.Total)
		}, decimal.Zero)
	}
	counts := map[models.InvoiceStatus]int{}
	for _, s := range models.InvoiceStatuses {
		counts[s] = 0
	}
	for _, r := range h.Rows {
		counts[r.Status]++
	}

	monthly := make([]MonthTotal, 12)
	for i := range monthly {
		monthly[i] = MonthTotal{Month: time.Month(i + 1), Revenue: decimal.Zero}
	}
	for _, r := range h.Rows {
		if r.IssueDate.IsZero() || r.IssueDate.Year() != now.Year() {
			continue
		}
		m := &monthly[r.IssueDate.Month()-1]
		m.Invoices++
		if r.Status == models.InvoiceStatusPaid {
			m.Revenue = m.Revenue.Add(r.Total)
		}
	}

	return HistorySummary{
		TotalInvoices: len(h.Rows),
		Revenue:       sum(models.InvoiceStatusPaid),
		Pending:       sum(models.InvoiceStatusSent),
		Overdue:       sum(models.InvoiceStatusOverdue),
		StatusCounts:  counts,
		Monthly:       monthly,
	}
}
