package services

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/store"
)

var (
	// ErrInvalidInvoice marks an invoice that cannot be written as requested.
	ErrInvalidInvoice = errors.New("invalid invoice")
	// ErrInvalidStatus is returned for a status outside draft/sent/paid/overdue.
	ErrInvalidStatus = errors.New("invalid invoice status")
)

type InvoiceService struct {
	store   store.InvoiceStore
	numbers *NumberGenerator
	now     func() time.Time
	log     *logger.Logger
}

func NewInvoiceService(s store.InvoiceStore, numbers *NumberGenerator, log *logger.Logger) *InvoiceService {
	return &InvoiceService{store: s, numbers: numbers, now: time.Now, log: log}
}

// Create writes an invoice and its lines. Totals are recomputed from the lines
// so that subtotal + tax_amount = total holds for what is stored.
func (s *InvoiceService) Create(ctx context.Context, n models.NewInvoice) (*models.Invoice, error) {
	if n.CustomerID == 0 {
		return nil, errors.Wrap(ErrInvalidInvoice, "customer is required")
	}
	if len(n.Items) == 0 {
		return nil, errors.Wrap(ErrInvalidInvoice, "at least one line is required")
	}
	if n.Status == "" {
		n.Status = models.InvoiceStatusDraft
	}
	if !n.Status.Valid() {
		return nil, errors.Wrapf(ErrInvalidStatus, "%q", n.Status)
	}
	if n.InvoiceNumber == "" {
		n.InvoiceNumber = s.numbers.Next(ctx)
	}
	if n.IssueDate.IsZero() {
		n.IssueDate = models.NewDate(s.now())
	}
	if n.DueDate.IsZero() {
		n.DueDate = n.IssueDate.AddDays(models.DefaultDueDays)
	}
	n.ApplyTotals()

	inv, err := s.store.AddInvoice(ctx, n)
	if err != nil {
		return nil, err
	}
	s.log.InfowCtx(ctx, "invoice created", "invoice_id", inv.ID, "number", inv.InvoiceNumber, "total", inv.Total.StringFixed(2))
	return inv, nil
}

// SetStatus asserts a new status. Any status may follow any other.
func (s *InvoiceService) SetStatus(ctx context.Context, id uint, status models.InvoiceStatus) (*models.Invoice, error) {
	if !status.Valid() {
		return nil, errors.Wrapf(ErrInvalidStatus, "%q", status)
	}
	return s.store.UpdateInvoice(ctx, id, models.InvoicePatch{Status: &status})
}

// Duplicate copies an invoice's customer, notes and lines into a new draft
// with a fresh number and today's dates.
func (s *InvoiceService) Duplicate(ctx context.Context, id uint) (*models.Invoice, error) {
	src, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	issue := models.NewDate(s.now())
	n := models.NewInvoice{
		InvoiceNumber: s.numbers.Next(ctx),
		CustomerID:    src.CustomerID,
		IssueDate:     issue,
		DueDate:       issue.AddDays(models.DefaultDueDays),
		Status:        models.InvoiceStatusDraft,
		Notes:         src.Notes,
	}
	for _, item := range src.Items {
		n.Items = append(n.Items, models.NewInvoiceItemFrom(item))
	}
	n.ApplyTotals()
	return s.store.AddInvoice(ctx, n)
}

func (s *InvoiceService) Delete(ctx context.Context, id uint) error {
	return s.store.DeleteInvoice(ctx, id)
}

func (s *InvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

// NextNumber exposes the generator to the composer.
func (s *InvoiceService) NextNumber(ctx context.Context) string {
	return s.numbers.Next(ctx)
}
