package pages

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/store"
	"github.com/diewo77/go-facturas/validation"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ErrLineNotFound is returned when a line id is not on the composer.
var ErrLineNotFound = errors.New("line not found")

// ComposerLine is a line being edited. LineID only lives on the composer;
// it is not stored.
type ComposerLine struct {
	LineID string `json:"line_id"`
	models.InvoiceItem
}

// InvoiceComposer is the new-invoice screen.
type InvoiceComposer struct {
	InvoiceNumber string            `json:"invoice_number"`
	IssueDate     models.Date       `json:"issue_date"`
	DueDate       models.Date       `json:"due_date"`
	Notes         string            `json:"notes"`
	CustomerID    uint              `json:"customer_id"`
	Customers     []models.Customer `json:"customers"`
	// Products holds only active products.
	Products []models.Product `json:"products"`
	Lines    []ComposerLine   `json:"lines"`
}

// NumberSource proposes the next invoice number.
type NumberSource interface {
	NextNumber(ctx context.Context) string
}

// NewInvoiceComposer loads customers and active products and proposes a number
// with an issue date of today and a due date 30 days later.
func NewInvoiceComposer(ctx context.Context, customers store.CustomerStore, products store.ProductStore, numbers NumberSource, now time.Time) (*InvoiceComposer, error) {
	custs, err := customers.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	prods, err := products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	issue := models.NewDate(now)
	return &InvoiceComposer{
		InvoiceNumber: numbers.NextNumber(ctx),
		IssueDate:     issue,
		DueDate:       issue.AddDays(models.DefaultDueDays),
		Customers:     custs,
		Products:      lo.Filter(prods, func(p models.Product, _ int) bool { return p.Active }),
		Lines:         []ComposerLine{},
	}, nil
}

// SelectCustomer picks the billed customer. Unknown ids clear the selection.
func (c *InvoiceComposer) SelectCustomer(id uint) bool {
	if _, ok := lo.Find(c.Customers, func(cu models.Customer) bool { return cu.ID == id }); ok {
		c.CustomerID = id
		return true
	}
	c.CustomerID = 0
	return false
}

// AddProductLine appends a line for an active product. A zero quantity
// defaults to 1 and a nil price uses the catalog price.
func (c *InvoiceComposer) AddProductLine(productID uint, quantity decimal.Decimal, price *decimal.Decimal, description string) (*ComposerLine, bool) {
	product, ok := lo.Find(c.Products, func(p models.Product) bool { return p.ID == productID })
	if !ok {
		return nil, false
	}
	return c.appendLine(models.NewLineItem(&product, quantity, price, description)), true
}

// AddCustomLine appends a line not tied to the catalog, taxed at 0.
func (c *InvoiceComposer) AddCustomLine(description string, quantity, price decimal.Decimal) *ComposerLine {
	return c.appendLine(models.NewLineItem(nil, quantity, &price, description))
}

func (c *InvoiceComposer) appendLine(item models.InvoiceItem) *ComposerLine {
	c.Lines = append(c.Lines, ComposerLine{LineID: uuid.NewString(), InvoiceItem: item})
	return &c.Lines[len(c.Lines)-1]
}

// LineEdit changes some fields of a line. Quantity and unit price recompute
// the line total; description and tax rate do not.
type LineEdit struct {
	Description *string          `json:"description,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	TaxRate     *decimal.Decimal `json:"tax_rate,omitempty"`
}

func (c *InvoiceComposer) UpdateLine(lineID string, edit LineEdit) error {
	_, idx, ok := lo.FindIndexOf(c.Lines, func(l ComposerLine) bool { return l.LineID == lineID })
	if !ok {
		return errors.Wrapf(ErrLineNotFound, "%s", lineID)
	}
	line := &c.Lines[idx]
	if edit.Description != nil {
		line.Description = *edit.Description
	}
	if edit.TaxRate != nil {
		line.TaxRate = *edit.TaxRate
	}
	if edit.Quantity != nil {
		line.SetQuantity(*edit.Quantity)
	}
	if edit.UnitPrice != nil {
		line.SetUnitPrice(*edit.UnitPrice)
	}
	return nil
}

func (c *InvoiceComposer) RemoveLine(lineID string) error {
	before := len(c.Lines)
	c.Lines = lo.Reject(c.Lines, func(l ComposerLine, _ int) bool { return l.LineID == lineID })
	if len(c.Lines) == before {
		return errors.Wrapf(ErrLineNotFound, "%s", lineID)
	}
	return nil
}

// Totals sums the current lines.
func (c *InvoiceComposer) Totals() models.Totals {
	return models.ComputeTotals(lo.Map(c.Lines, func(l ComposerLine, _ int) models.InvoiceItem { return l.InvoiceItem }))
}

// Build produces the insert payload. It needs a customer and at least one line.
func (c *InvoiceComposer) Build(status models.InvoiceStatus) (models.NewInvoice, error) {
	v := validation.Violations{}
	if c.CustomerID == 0 {
		v["customer_id"] = "required"
	}
	if len(c.Lines) == 0 {
		v["lines"] = "required"
	}
	if !status.Valid() {
		v["status"] = "invalid_choice"
	}
	if err := v.Err(); err != nil {
		return models.NewInvoice{}, err
	}

	n := models.NewInvoice{
		InvoiceNumber: c.InvoiceNumber,
		CustomerID:    c.CustomerID,
		IssueDate:     c.IssueDate,
		DueDate:       c.DueDate,
		Status:        status,
		Notes:         optional(c.Notes),
		Items: lo.Map(c.Lines, func(l ComposerLine, _ int) models.NewInvoiceItem {
			return models.NewInvoiceItemFrom(l.InvoiceItem)
		}),
	}
	n.ApplyTotals()
	return n, nil
}
