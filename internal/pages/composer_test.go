package pages

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedNumber string

func (f fixedNumber) NextNumber(context.Context) string { return string(f) }

func newComposer(t *testing.T) (*InvoiceComposer, *models.Customer, []*models.Product) {
	t.Helper()
	ctx := context.Background()
	s := setupStore(t)

	c, err := CustomerForm{Name: "Acme", Email: "a@acme.es"}.Save(ctx, s, 0)
	require.NoError(t, err)

	hosting := DefaultProductForm()
	hosting.Name, hosting.Description, hosting.Price = "Hosting", "Plan básico", d("10")
	h, err := hosting.Save(ctx, s, 0)
	require.NoError(t, err)

	retired := DefaultProductForm()
	retired.Name, retired.Active = "Retired", false
	r, err := retired.Save(ctx, s, 0)
	require.NoError(t, err)

	now := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	comp, err := NewInvoiceComposer(ctx, s, s, fixedNumber("FAC-202403-007"), now)
	require.NoError(t, err)
	return comp, c, []*models.Product{h, r}
}

func TestNewInvoiceComposer_Defaults(t *testing.T) {
	comp, _, prods := newComposer(t)

	assert.Equal(t, "FAC-202403-007", comp.InvoiceNumber)
	assert.Equal(t, "2024-03-10", comp.IssueDate.String())
	assert.Equal(t, "2024-04-09", comp.DueDate.String())
	assert.Len(t, comp.Customers, 1)
	require.Len(t, comp.Products, 1, "inactive products are not offered")
	assert.Equal(t, prods[0].ID, comp.Products[0].ID)
	assert.Empty(t, comp.Lines)
}

func TestInvoiceComposer_Lines(t *testing.T) {
	comp, _, prods := newComposer(t)

	_, ok := comp.AddProductLine(prods[1].ID, decimal.Zero, nil, "")
	assert.False(t, ok, "inactive product cannot be added")

	line, ok := comp.AddProductLine(prods[0].ID, d("2"), nil, "")
	require.True(t, ok)
	assert.Equal(t, "Plan básico", line.Description, "description defaults to the catalog one")
	assert.True(t, line.UnitPrice.Equal(d("10")))
	assert.True(t, line.TaxRate.Equal(d("21")))
	assert.True(t, line.LineTotal.Equal(d("20")))
	assert.NotEmpty(t, line.LineID)
	hostingLine := line.LineID

	custom := comp.AddCustomLine("Instalación", d("1"), d("50"))
	assert.True(t, custom.TaxRate.IsZero())
	assert.Nil(t, custom.ProductID)

	tot := comp.Totals()
	assert.True(t, tot.Subtotal.Equal(d("70")))
	assert.True(t, tot.TaxAmount.Equal(d("4.2")))
	assert.True(t, tot.Total.Equal(d("74.2")))

	qty := d("3")
	require.NoError(t, comp.UpdateLine(hostingLine, LineEdit{Quantity: &qty}))
	assert.True(t, comp.Lines[0].LineTotal.Equal(d("30")))

	rate := d("10")
	require.NoError(t, comp.UpdateLine(custom.LineID, LineEdit{TaxRate: &rate}))
	assert.True(t, comp.Lines[1].LineTotal.Equal(d("50")), "tax rate does not change the line total")
	assert.True(t, comp.Totals().TaxAmount.Equal(d("11.3")))

	err := comp.UpdateLine("missing", LineEdit{Quantity: &qty})
	assert.True(t, errors.Is(err, ErrLineNotFound))

	require.NoError(t, comp.RemoveLine(hostingLine))
	assert.Len(t, comp.Lines, 1)
	assert.True(t, errors.Is(comp.RemoveLine(hostingLine), ErrLineNotFound))
}

func TestInvoiceComposer_Build(t *testing.T) {
	comp, c, prods := newComposer(t)

	_, err := comp.Build(models.InvoiceStatusDraft)
	v, ok := validation.AsViolations(err)
	require.True(t, ok)
	assert.Equal(t, "required", v["customer_id"])
	assert.Equal(t, "required", v["lines"])

	assert.False(t, comp.SelectCustomer(999))
	assert.Zero(t, comp.CustomerID)
	assert.True(t, comp.SelectCustomer(c.ID))

	_, ok = comp.AddProductLine(prods[0].ID, d("1"), nil, "")
	require.True(t, ok)

	_, err = comp.Build("archived")
	v, ok = validation.AsViolations(err)
	require.True(t, ok)
	assert.Equal(t, validation.Violations{"status": "invalid_choice"}, v)

	comp.Notes = "  "
	n, err := comp.Build(models.InvoiceStatusSent)
	require.NoError(t, err)
	assert.Equal(t, "FAC-202403-007", n.InvoiceNumber)
	assert.Equal(t, c.ID, n.CustomerID)
	assert.Equal(t, models.InvoiceStatusSent, n.Status)
	assert.Nil(t, n.Notes)
	require.Len(t, n.Items, 1)
	assert.True(t, n.Total.Equal(d("12.1")))
}
