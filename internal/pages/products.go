package pages

import (
	"context"
	"strings"

	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/store"
	"github.com/diewo77/go-facturas/validation"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var maxTaxRate = decimal.NewFromInt(100)

// ProductList is the catalog screen.
type ProductList struct {
	Products []models.Product `json:"products"`
	Search   string           `json:"search"`
}

func LoadProductList(ctx context.Context, s store.ProductStore, search string) (*ProductList, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductList{Products: products, Search: search}, nil
}

// Filtered returns the products whose name, description or unit contain the search term.
func (l *ProductList) Filtered() []models.Product {
	return lo.Filter(l.Products, func(p models.Product, _ int) bool {
		return matchesAny(l.Search, p.Name, p.DescriptionText(), p.Unit)
	})
}

// ActiveCount counts active products over the whole catalog.
func (l *ProductList) ActiveCount() int {
	return lo.CountBy(l.Products, func(p models.Product) bool { return p.Active })
}

// TotalValue sums catalog prices, active or not.
func (l *ProductList) TotalValue() decimal.Decimal {
	return lo.Reduce(l.Products, func(acc decimal.Decimal, p models.Product, _ int) decimal.Decimal {
		return acc.Add(p.Price)
	}, decimal.Zero)
}

// ProductForm is the add/edit dialog.
type ProductForm struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	TaxRate     decimal.Decimal `json:"tax_rate" validate:"gte=0,lte=100"`
	Unit        string          `json:"unit" validate:"required"`
	Active      bool            `json:"active"`
}

// DefaultProductForm is the empty form: general VAT, priced per unit, active.
func DefaultProductForm() ProductForm {
	return ProductForm{
		Price:   decimal.Zero,
		TaxRate: models.DefaultTaxRate,
		Unit:    models.UnitPiece,
		Active:  true,
	}
}

func ProductFormFrom(p models.Product) ProductForm {
	return ProductForm{
		Name:        p.Name,
		Description: p.DescriptionText(),
		Price:       p.Price,
		TaxRate:     p.TaxRate,
		Unit:        p.Unit,
		Active:      p.Active,
	}
}

func (f ProductForm) Validate() validation.Violations {
	f.Name = strings.TrimSpace(f.Name)
	v := validation.Struct(f)
	if _, bad := v["unit"]; !bad {
		validation.OneOf("unit", f.Unit, models.Units, v)
	}
	return v
}

func (f ProductForm) New() models.NewProduct {
	return models.NewProduct{
		Name:        strings.TrimSpace(f.Name),
		Description: optional(f.Description),
		Price:       f.Price,
		TaxRate:     f.TaxRate,
		Unit:        f.Unit,
		Active:      f.Active,
	}
}

func (f ProductForm) Patch() models.ProductPatch {
	name := strings.TrimSpace(f.Name)
	desc := strings.TrimSpace(f.Description)
	price, tax, unit, active := f.Price, f.TaxRate, f.Unit, f.Active
	return models.ProductPatch{Name: &name, Description: &desc, Price: &price, TaxRate: &tax, Unit: &unit, Active: &active}
}

// Save adds a product, or updates product id when id is non-zero.
func (f ProductForm) Save(ctx context.Context, s store.ProductStore, id uint) (*models.Product, error) {
	if err := f.Validate().Err(); err != nil {
		return nil, err
	}
	if id == 0 {
		return s.AddProduct(ctx, f.New())
	}
	return s.UpdateProduct(ctx, id, f.Patch())
}

// ToggleActive flips the active flag of p and nothing else.
func ToggleActive(ctx context.Context, s store.ProductStore, p models.Product) (*models.Product, error) {
	active := !p.Active
	return s.UpdateProduct(ctx, p.ID, models.ProductPatch{Active: &active})
}

// ValidateProductPatch checks the fields present in a partial update.
func ValidateProductPatch(p models.ProductPatch) validation.Violations {
	v := validation.Violations{}
	if p.Name != nil {
		validation.Required("name", *p.Name, v)
	}
	if p.Price != nil {
		validation.NonNegativeDecimal("price", *p.Price, v)
	}
	if p.TaxRate != nil {
		validation.RangeDecimal("tax_rate", *p.TaxRate, decimal.Zero, maxTaxRate, v)
	}
	if p.Unit != nil {
		validation.OneOf("unit", *p.Unit, models.Units, v)
	}
	return v
}
