package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// InvoiceStatuses lists every status in display order.
var InvoiceStatuses = []InvoiceStatus{InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue}

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// DefaultDueDays is the gap between issue and due date proposed for new invoices.
const DefaultDueDays = 30

var hundred = decimal.NewFromInt(100)

// Invoice represents a billing invoice. Subtotal, TaxAmount and Total are
// computed from the items when the invoice is written and stored as is.
type Invoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	InvoiceNumber string          `gorm:"column:invoice_number;size:50;index" json:"invoice_number"`
	CustomerID    uint            `gorm:"index;not null" json:"customer_id"`
	IssueDate     Date            `gorm:"type:date;not null" json:"issue_date"`
	DueDate       Date            `gorm:"type:date;not null" json:"due_date"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"subtotal"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"tax_amount"`
	Total         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total"`
	Status        InvoiceStatus   `gorm:"size:20;not null;default:'draft'" json:"status"`
	Notes         *string         `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }

// IsDraft returns true if the invoice is in draft status.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// Balanced reports whether subtotal + tax_amount == total.
func (i *Invoice) Balanced() bool {
	return i.Subtotal.Add(i.TaxAmount).Equal(i.Total)
}

// InvoiceItem represents a line item on an invoice.
type InvoiceItem struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`
	// ProductID is nil for ad-hoc lines.
	ProductID   *uint           `gorm:"index" json:"product_id"`
	Description string          `gorm:"size:500;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"line_total"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// ComputeLineTotal returns quantity × unit price.
func (item *InvoiceItem) ComputeLineTotal() decimal.Decimal {
	return item.Quantity.Mul(item.UnitPrice)
}

// TaxAmount returns the tax portion of the line.
func (item *InvoiceItem) TaxAmount() decimal.Decimal {
	return item.LineTotal.Mul(item.TaxRate).Div(hundred)
}

// SetQuantity changes the quantity and recomputes the line total.
func (item *InvoiceItem) SetQuantity(q decimal.Decimal) {
	item.Quantity = q
	item.LineTotal = item.ComputeLineTotal()
}

// SetUnitPrice changes the unit price and recomputes the line total.
func (item *InvoiceItem) SetUnitPrice(p decimal.Decimal) {
	item.UnitPrice = p
	item.LineTotal = item.ComputeLineTotal()
}

// NewLineItem builds a line from a catalog product. A nil product yields a
// custom line taxed at 0. Non-positive quantities default to 1 and a nil
// price override falls back to the catalog price.
func NewLineItem(product *Product, quantity decimal.Decimal, priceOverride *decimal.Decimal, description string) InvoiceItem {
	if !quantity.IsPositive() {
		quantity = decimal.NewFromInt(1)
	}
	item := InvoiceItem{Quantity: quantity, TaxRate: decimal.Zero, Description: description}
	if product != nil {
		id := product.ID
		item.ProductID = &id
		item.UnitPrice = product.Price
		item.TaxRate = product.TaxRate
		if item.Description == "" {
			item.Description = product.DescriptionText()
		}
	}
	if priceOverride != nil {
		item.UnitPrice = *priceOverride
	}
	item.LineTotal = item.ComputeLineTotal()
	return item
}

// Totals holds the aggregate amounts of a set of lines.
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Total     decimal.Decimal `json:"total"`
}

// ComputeTotals sums line totals and line taxes. The result does not depend on item order.
func ComputeTotals(items []InvoiceItem) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for i := range items {
		subtotal = subtotal.Add(items[i].LineTotal)
		tax = tax.Add(items[i].TaxAmount())
	}
	return Totals{Subtotal: subtotal, TaxAmount: tax, Total: subtotal.Add(tax)}
}

// NewInvoice carries the fields written when an invoice is created. Items are
// written to invoice_items once the invoice id is known.
type NewInvoice struct {
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uint            `json:"customer_id"`
	IssueDate     Date            `json:"issue_date"`
	DueDate       Date            `json:"due_date"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	Status        InvoiceStatus   `json:"status"`
	Notes         *string         `json:"notes"`

	Items []NewInvoiceItem `json:"-"`
}

// ApplyTotals recomputes Subtotal, TaxAmount and Total from the items.
func (n *NewInvoice) ApplyTotals() {
	lines := make([]InvoiceItem, len(n.Items))
	for i, it := range n.Items {
		lines[i] = it.Model()
	}
	t := ComputeTotals(lines)
	n.Subtotal, n.TaxAmount, n.Total = t.Subtotal, t.TaxAmount, t.Total
}

func (n NewInvoice) Model() Invoice {
	inv := Invoice{
		InvoiceNumber: n.InvoiceNumber,
		CustomerID:    n.CustomerID,
		IssueDate:     n.IssueDate,
		DueDate:       n.DueDate,
		Subtotal:      n.Subtotal,
		TaxAmount:     n.TaxAmount,
		Total:         n.Total,
		Status:        n.Status,
		Notes:         n.Notes,
	}
	for _, it := range n.Items {
		inv.Items = append(inv.Items, it.Model())
	}
	return inv
}

// NewInvoiceItem is a line to insert. InvoiceID is filled by the store.
type NewInvoiceItem struct {
	InvoiceID   uint            `json:"invoice_id"`
	ProductID   *uint           `json:"product_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// NewInvoiceItemFrom copies the writable fields of a line.
func NewInvoiceItemFrom(item InvoiceItem) NewInvoiceItem {
	return NewInvoiceItem{
		ProductID:   item.ProductID,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		TaxRate:     item.TaxRate,
		LineTotal:   item.LineTotal,
	}
}

func (n NewInvoiceItem) Model() InvoiceItem {
	return InvoiceItem{
		InvoiceID:   n.InvoiceID,
		ProductID:   n.ProductID,
		Description: n.Description,
		Quantity:    n.Quantity,
		UnitPrice:   n.UnitPrice,
		TaxRate:     n.TaxRate,
		LineTotal:   n.LineTotal,
	}
}

// InvoicePatch is a partial update: nil fields are left untouched.
type InvoicePatch struct {
	InvoiceNumber *string        `json:"invoice_number,omitempty"`
	CustomerID    *uint          `json:"customer_id,omitempty"`
	IssueDate     *Date          `json:"issue_date,omitempty"`
	DueDate       *Date          `json:"due_date,omitempty"`
	Status        *InvoiceStatus `json:"status,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
}

func (p InvoicePatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.InvoiceNumber != nil {
		cols["invoice_number"] = *p.InvoiceNumber
	}
	if p.CustomerID != nil {
		cols["customer_id"] = *p.CustomerID
	}
	if p.IssueDate != nil {
		cols["issue_date"] = *p.IssueDate
	}
	if p.DueDate != nil {
		cols["due_date"] = *p.DueDate
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.Notes != nil {
		cols["notes"] = *p.Notes
	}
	return cols
}

func (p InvoicePatch) Empty() bool { return len(p.Columns()) == 0 }

// InvoiceSummary is the projection read by the dashboard.
type InvoiceSummary struct {
	Total  decimal.Decimal `json:"total"`
	Status InvoiceStatus   `json:"status"`
}
