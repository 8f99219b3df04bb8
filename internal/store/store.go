// Package store is the data-access layer: one list/add/update/delete set per
// table, plus the projections read by the dashboard. Implementations live in
// the gormstore and supabase sub-packages.
package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/diewo77/go-facturas/internal/models"
)

// Table names shared by every backend and by the realtime bridge.
const (
	TableProducts     = "products"
	TableCustomers    = "customers"
	TableInvoices     = "invoices"
	TableInvoiceItems = "invoice_items"
)

var (
	// ErrDataLayer marks any failure reported by the remote store.
	ErrDataLayer = errors.New("data layer error")
	// ErrNotFound is returned when the targeted row does not exist.
	ErrNotFound = errors.New("record not found")
)

// Wrap annotates err with the operation name and marks it as a data layer failure.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, op), ErrDataLayer)
}

// NotFound builds an ErrNotFound annotated with the operation name.
func NotFound(op string) error {
	return errors.Wrap(ErrNotFound, op)
}

type ProductStore interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	AddProduct(ctx context.Context, p models.NewProduct) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uint, patch models.ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
}

type CustomerStore interface {
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	AddCustomer(ctx context.Context, c models.NewCustomer) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id uint, patch models.CustomerPatch) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id uint) error
}

type InvoiceStore interface {
	ListInvoices(ctx context.Context) ([]models.Invoice, error)
	// GetInvoice returns the invoice with its items.
	GetInvoice(ctx context.Context, id uint) (*models.Invoice, error)
	// AddInvoice writes the invoice and its items.
	AddInvoice(ctx context.Context, inv models.NewInvoice) (*models.Invoice, error)
	UpdateInvoice(ctx context.Context, id uint, patch models.InvoicePatch) (*models.Invoice, error)
	// DeleteInvoice removes the invoice and its items.
	DeleteInvoice(ctx context.Context, id uint) error
	// LastInvoiceNumber returns the number of the most recently created invoice.
	// ok is false when there are no invoices.
	LastInvoiceNumber(ctx context.Context) (number string, ok bool, err error)
}

// StatsReader exposes the narrow column projections folded by the dashboard.
type StatsReader interface {
	ProductSummaries(ctx context.Context) ([]models.ProductSummary, error)
	CustomerIDs(ctx context.Context) ([]uint, error)
	InvoiceSummaries(ctx context.Context) ([]models.InvoiceSummary, error)
}

// Store is the complete data-access surface.
type Store interface {
	ProductStore
	CustomerStore
	InvoiceStore
	StatsReader
	Ping(ctx context.Context) error
}
