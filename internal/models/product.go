package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Units offered by the catalog form.
const (
	UnitPiece   = "unidad"
	UnitHour    = "hora"
	UnitDay     = "día"
	UnitMonth   = "mes"
	UnitYear    = "año"
	UnitProject = "proyecto"
	UnitKilo    = "kg"
	UnitMeter   = "metro"
)

// Units lists every accepted unit label.
var Units = []string{UnitPiece, UnitHour, UnitDay, UnitMonth, UnitYear, UnitProject, UnitKilo, UnitMeter}

// DefaultTaxRate is the general VAT rate proposed for new products.
var DefaultTaxRate = decimal.RequireFromString("21.00")

// Product is a catalog entry (good or service). Disabling is done through Active.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description *string         `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"price"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	Unit        string          `gorm:"size:50;not null;default:'unidad'" json:"unit"`
	Active      bool            `gorm:"not null" json:"active"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName pins the table name shared with the hosted store.
func (Product) TableName() string { return "products" }

// DescriptionText returns the description or "" when unset.
func (p *Product) DescriptionText() string {
	if p.Description == nil {
		return ""
	}
	return *p.Description
}

// NewProduct carries the fields a caller may set when creating a product.
type NewProduct struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Unit        string          `json:"unit"`
	Active      bool            `json:"active"`
}

// Model converts the payload into a row ready to insert.
func (n NewProduct) Model() Product {
	return Product{
		Name:        n.Name,
		Description: n.Description,
		Price:       n.Price,
		TaxRate:     n.TaxRate,
		Unit:        n.Unit,
		Active:      n.Active,
	}
}

// ProductPatch is a partial update: nil fields are left untouched.
type ProductPatch struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	TaxRate     *decimal.Decimal `json:"tax_rate,omitempty"`
	Unit        *string          `json:"unit,omitempty"`
	Active      *bool            `json:"active,omitempty"`
}

// Columns returns the column/value pairs present in the patch.
func (p ProductPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.TaxRate != nil {
		cols["tax_rate"] = *p.TaxRate
	}
	if p.Unit != nil {
		cols["unit"] = *p.Unit
	}
	if p.Active != nil {
		cols["active"] = *p.Active
	}
	return cols
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool { return len(p.Columns()) == 0 }

// ProductSummary is the projection read by the dashboard.
type ProductSummary struct {
	ID     uint            `json:"id"`
	Active bool            `json:"active"`
	Price  decimal.Decimal `json:"price"`
}
