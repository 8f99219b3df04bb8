package gormstore

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.Customer{}, &models.Invoice{}, &models.InvoiceItem{}))
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func draft(number string, status models.InvoiceStatus, total string) models.NewInvoice {
	today := models.NewDate(time.Now())
	return models.NewInvoice{
		InvoiceNumber: number,
		CustomerID:    1,
		IssueDate:     today,
		DueDate:       today.AddDays(models.DefaultDueDays),
		Subtotal:      dec(total),
		Total:         dec(total),
		Status:        status,
	}
}

func TestProducts_CRUD(t *testing.T) {
	ctx := context.Background()
	s := New(setupTestDB(t))

	first, err := s.AddProduct(ctx, models.NewProduct{Name: "Hosting", Price: dec("10"), TaxRate: dec("21"), Unit: models.UnitMonth, Active: true})
	require.NoError(t, err)
	second, err := s.AddProduct(ctx, models.NewProduct{Name: "Soporte", Price: dec("20"), TaxRate: dec("21"), Unit: models.UnitHour, Active: false})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.False(t, second.Active)

	list, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.False(t, list[0].Active, "inactive flag must be stored as given")

	name := "Hosting Pro"
	updated, err := s.UpdateProduct(ctx, first.ID, models.ProductPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Hosting Pro", updated.Name)
	assert.True(t, updated.Price.Equal(dec("10")), "price left untouched")
	assert.Equal(t, models.UnitMonth, updated.Unit)
	assert.True(t, updated.Active)

	require.NoError(t, s.DeleteProduct(ctx, first.ID))
	list, err = s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestProducts_ToggleFlipsOnlyActive(t *testing.T) {
	ctx := context.Background()
	s := New(setupTestDB(t))
	desc := "Horas de desarrollo"
	p, err := s.AddProduct(ctx, models.NewProduct{Name: "Dev", Description: &desc, Price: dec("45.50"), TaxRate: dec("21"), Unit: models.UnitHour, Active: true})
	require.NoError(t, err)

	off := false
	got, err := s.UpdateProduct(ctx, p.ID, models.ProductPatch{Active: &off})
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, "Horas de desarrollo", got.DescriptionText())
	assert.True(t, got.Price.Equal(p.Price))
	assert.True(t, got.TaxRate.Equal(p.TaxRate))
	assert.Equal(t, p.Unit, got.Unit)
}

func TestUpdateAndDelete_NotFound(t *testing.T) {
	ctx := context.Background()
	s := New(setupTestDB(t))
	name := "x"

	_, err := s.UpdateCustomer(ctx, 999, models.CustomerPatch{Name: &name})
	assert.True(t, errors.Is(err, store.ErrNotFound))

	assert.True(t, errors.Is(s.DeleteProduct(ctx, 999), store.ErrNotFound))
	assert.True(t, errors.Is(s.DeleteInvoice(ctx, 999), store.ErrNotFound))

	_, err = s.GetInvoice(ctx, 999)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestCustomers_DeleteKeepsInvoices(t *testing.T) {
	ctx := context.Background()
	s := New(setupTestDB(t))
	c, err := s.AddCustomer(ctx, models.NewCustomer{Name: "Acme", Email: "billing@acme.test"})
	require.NoError(t, err)
	inv := draft("FAC-202401-001", models.InvoiceStatusDraft, "0")
	inv.CustomerID = c.ID
	_, err = s.AddInvoice(ctx, inv)
	require.NoError(t, err)

	require.NoError(t, s.DeleteCustomer(ctx, c.ID))

	customers, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Empty(t, customers)
	invoices, err := s.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
}

func TestInvoices_AddGetDelete(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	s := New(db)

	issue := models.NewDate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	n := models.NewInvoice{
		InvoiceNumber: "FAC-202401-007",
		CustomerID:    1,
		IssueDate:     issue,
		DueDate:       issue.AddDays(models.DefaultDueDays),
		Status:        models.InvoiceStatusSent,
		Items: []models.NewInvoiceItem{
			{Description: "Diseño", Quantity: dec("2"), UnitPrice: dec("100"), TaxRate: dec("21"), LineTotal: dec("200")},
			{Description: "Viaje", Quantity: dec("1"), UnitPrice: dec("50"), TaxRate: dec("0"), LineTotal: dec("50")},
		},
	}
	n.ApplyTotals()

	inv, err := s.AddInvoice(ctx, n)
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	for _, it := range inv.Items {
		assert.Equal(t, inv.ID, it.InvoiceID)
	}

	got, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "FAC-202401-007", got.InvoiceNumber)
	assert.Equal(t, "2024-01-15", got.IssueDate.String())
	assert.Equal(t, "2024-02-14", got.DueDate.String())
	assert.True(t, got.Subtotal.Equal(dec("250")))
	assert.True(t, got.TaxAmount.Equal(dec("42")))
	assert.True(t, got.Balanced())
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Diseño", got.Items[0].Description)

	paid := models.InvoiceStatusPaid
	upd, err := s.UpdateInvoice(ctx, inv.ID, models.InvoicePatch{Status: &paid})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, upd.Status)
	assert.True(t, upd.Total.Equal(got.Total), "totals are not recomputed on update")

	require.NoError(t, s.DeleteInvoice(ctx, inv.ID))
	var remaining int64
	require.NoError(t, db.Model(&models.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestLastInvoiceNumber(t *testing.T) {
	ctx := context.Background()
	s := New(setupTestDB(t))

	_, ok, err := s.LastInvoiceNumber(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, num := range []string{"FAC-202401-001", "FAC-202401-002", "FAC-202401-003"} {
		_, err := s.AddInvoice(ctx, draft(num, models.InvoiceStatusDraft, "0"))
		require.NoError(t, err)
	}
	last, ok, err := s.LastInvoiceNumber(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "FAC-202401-003", last)
}

func TestProjections(t *testing.T) {
	ctx := context.Background()
	s := New(setupTestDB(t))

	_, err := s.AddProduct(ctx, models.NewProduct{Name: "A", Price: dec("10"), Unit: models.UnitPiece, Active: true})
	require.NoError(t, err)
	_, err = s.AddProduct(ctx, models.NewProduct{Name: "B", Price: dec("20"), Unit: models.UnitPiece, Active: false})
	require.NoError(t, err)
	_, err = s.AddCustomer(ctx, models.NewCustomer{Name: "C", Email: "c@test"})
	require.NoError(t, err)
	_, err = s.AddInvoice(ctx, draft("FAC-1", models.InvoiceStatusPaid, "100"))
	require.NoError(t, err)
	_, err = s.AddInvoice(ctx, draft("FAC-2", models.InvoiceStatusSent, "50"))
	require.NoError(t, err)

	products, err := s.ProductSummaries(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	ids, err := s.CustomerIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	invoices, err := s.InvoiceSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	statuses := map[models.InvoiceStatus]string{}
	for _, inv := range invoices {
		statuses[inv.Status] = inv.Total.String()
	}
	assert.Equal(t, "100", statuses[models.InvoiceStatusPaid])
	assert.Equal(t, "50", statuses[models.InvoiceStatusSent])

	require.NoError(t, s.Ping(ctx))
}
