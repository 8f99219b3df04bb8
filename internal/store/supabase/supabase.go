// Package supabase implements store.Store against the Supabase REST gateway
// (PostgREST) with the nedpals client. Rows are sorted by created_at on the
// client after each list call.
package supabase

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/store"
	supa "github.com/nedpals/supabase-go"
	"github.com/samber/lo"
)

// Store talks to the four application tables through PostgREST.
type Store struct {
	client *supa.Client
	log    *logger.Logger
}

var _ store.Store = (*Store)(nil)

// New builds a Store for the project at url using the anonymous key.
func New(url, anonKey string, log *logger.Logger) *Store {
	return &Store{client: supa.CreateClient(url, anonKey), log: log}
}

type idRow struct {
	ID uint `json:"id"`
}

func idValue(id uint) string { return strconv.FormatUint(uint64(id), 10) }

// newestFirst orders rows by created_at descending, falling back to id.
func newestFirst[T any](rows []T, createdAt func(T) time.Time, id func(T) uint) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := createdAt(rows[i]), createdAt(rows[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return id(rows[i]) > id(rows[j])
	})
}

func (s *Store) Ping(ctx context.Context) error {
	var rows []idRow
	err := s.client.DB.From(store.TableProducts).Select("id").Eq("id", "0").ExecuteWithContext(ctx, &rows)
	return store.Wrap(err, "ping")
}

// ─────────────────────────────────────────────────────────────────────────────
// Products
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	if err := s.client.DB.From(store.TableProducts).Select("*").ExecuteWithContext(ctx, &rows); err != nil {
		return nil, store.Wrap(err, "list products")
	}
	newestFirst(rows, func(p models.Product) time.Time { return p.CreatedAt }, func(p models.Product) uint { return p.ID })
	return rows, nil
}

func (s *Store) AddProduct(ctx context.Context, p models.NewProduct) (*models.Product, error) {
	var rows []models.Product
	if err := s.client.DB.From(store.TableProducts).Insert(p).ExecuteWithContext(ctx, &rows); err != nil {
		return nil, store.Wrap(err, "add product")
	}
	return single(rows, "add product")
}

func (s *Store) UpdateProduct(ctx context.Context, id uint, patch models.ProductPatch) (*models.Product, error) {
	var rows []models.Product
	if err := s.client.DB.From(store.TableProducts).Update(patch).Eq("id", idValue(id)).ExecuteWithContext(ctx, &rows); err != nil {
		return nil, store.Wrap(err, "update product")
	}
	return single(rows, "update product")
}

func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	return s.delete(ctx, store.TableProducts, id, "delete product")
}

// ─────────────────────────────────────────────────────────────────────────────
// Customers
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var rows []models.Customer
	if err := s.client.DB.From(store.TableCustomers).Select("*").ExecuteWithContext(ctx, &rows); err != nil {
		return nil, store.Wrap(err, "list customers")
	}
	newestFirst(rows, func(c models.Customer) time.Time { return c.CreatedAt }, func(c models.Customer) uint { return c.ID })
	return rows, nil
}

func (s *Store) AddCustomer(ctx context.Context, c models.NewCustomer) (*models.Customer, error) {
	var rows []models.Customer
	if err := s.client.DB.From(store.TableCustomers).Insert(c).ExecuteWithContext(ctx, &rows); err != nil {
		return nil, store.Wrap(err, "add customer")
	}
	return single(rows, "add customer")
}

func (s *Store) UpdateCustomer(ctx context.Context, id uint, patch models.CustomerPatch) (*models.Customer, error) {
	var rows []models.Customer
	if err := s.client.DB.From(store.TableCustomers).Update(patch).Eq("id", idValue(id)).ExecuteWithContext(ctx, &rows); err != nil {
		return nil, store.Wrap(err, "update customer")
	}
	return single(rows, "update customer")
}

func (s *Store) DeleteCustomer(ctx context.Context, id uint) error {
	return s.delete(ctx, store.TableCustomers, id, "delete customer")
}

// ─────────────────────────────────────────────────────────────────────────────
// Invoices
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) ListInvoices(ctx context.Context) ([]models.Invoice, error) {
	var rows []models.Invoice
	if err := s.client.DB.From(store.TableInvoices).Select("*").ExecuteWithContext(ctx, &rows); err != nil {
		return nil, store.Wrap(err, "list invoices")
	}
	newestFirst(rows, func(i models.Invoice) time.Time { return i.CreatedAt }, func(i models.Invoice) uint { return i.ID })
	return rows, nil
}

func (s *Store) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var rows []models.Invoice
	if err := s.client.DB.From(store.TableInvoices).Select("*").Eq("id", idValue(id)).ExecuteWithContext(ctx, &rows); err != nil {
		return nil, store.Wrap(err, "get invoice")
	}
	inv, err := single(rows, "get invoice")
	if err != nil {
		return nil, err
	}
	var items []models.InvoiceItem
	if err := s.client.DB.From(store.TableInvoiceItems).Select("*").Eq("invoice_id", idValue(id)).ExecuteWithContext(ctx, &items); err != nil {
		return nil, store.Wrap(err, "get invoice items")
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	inv.Items = items
	return inv, nil
}

// AddInvoice inserts the invoice row, then its items. The gateway offers no
// transaction, so a failed item insert is followed by a best-effort removal
// of the invoice row.
func (s *Store) AddInvoice(ctx context.Context, n models.NewInvoice) (*models.Invoice, error) {
	var rows []models.Invoice
	if err := s.client.DB.From(store.TableInvoices).Insert(n).ExecuteWithContext(ctx, &rows); err != nil {
		return nil, store.Wrap(err, "add invoice")
	}
	inv, err := single(rows, "add invoice")
	if err != nil {
		return nil, err
	}
	if len(n.Items) == 0 {
		return inv, nil
	}
	payload := lo.Map(n.Items, func(it models.NewInvoiceItem, _ int) models.NewInvoiceItem {
		it.InvoiceID = inv.ID
		return it
	})
	var items []models.InvoiceItem
	if err := s.client.DB.From(store.TableInvoiceItems).Insert(payload).ExecuteWithContext(ctx, &items); err != nil {
		if rbErr := s.delete(ctx, store.TableInvoices, inv.ID, "rollback invoice"); rbErr != nil {
			s.log.WarnwCtx(ctx, "could not remove invoice after item insert failure", "invoice_id", inv.ID, "error", rbErr)
		}
		return nil, store.Wrap(err, "add invoice items")
	}
	inv.Items = items
	return inv, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, id uint, patch models.InvoicePatch) (*models.Invoice, error) {
	var rows []models.Invoice
	if err := s.client.DB.From(store.TableInvoices).Update(patch).Eq("id", idValue(id)).ExecuteWithContext(ctx, &rows); err != nil {
		return nil, store.Wrap(err, "update invoice")
	}
	return single(rows, "update invoice")
}

func (s *Store) DeleteInvoice(ctx context.Context, id uint) error {
	var removed []models.InvoiceItem
	if err := s.client.DB.From(store.TableInvoiceItems).Delete().Eq("invoice_id", idValue(id)).ExecuteWithContext(ctx, &removed); err != nil {
		return store.Wrap(err, "delete invoice items")
	}
	return s.delete(ctx, store.TableInvoices, id, "delete invoice")
}

type numberRow struct {
	ID            uint      `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *Store) LastInvoiceNumber(ctx context.Context) (string, bool, error) {
	var rows []numberRow
	if err := s.client.DB.From(store.TableInvoices).Select("id,invoice_number,created_at").ExecuteWithContext(ctx, &rows); err != nil {
		return "", false, store.Wrap(err, "last invoice number")
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	last := lo.MaxBy(rows, func(a, b numberRow) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return last.InvoiceNumber, true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Dashboard projections
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) ProductSummaries(ctx context.Context) ([]models.ProductSummary, error) {
	var rows []models.ProductSummary
	if err := s.client.DB.From(store.TableProducts).Select("id,active,price").ExecuteWithContext(ctx, &rows); err != nil {
		return nil, store.Wrap(err, "product summaries")
	}
	return rows, nil
}

func (s *Store) CustomerIDs(ctx context.Context) ([]uint, error) {
	var rows []idRow
	if err := s.client.DB.From(store.TableCustomers).Select("id").ExecuteWithContext(ctx, &rows); err != nil {
		return nil, store.Wrap(err, "customer ids")
	}
	return lo.Map(rows, func(r idRow, _ int) uint { return r.ID }), nil
}

func (s *Store) InvoiceSummaries(ctx context.Context) ([]models.InvoiceSummary, error) {
	var rows []models.InvoiceSummary
	if err := s.client.DB.From(store.TableInvoices).Select("total,status").ExecuteWithContext(ctx, &rows); err != nil {
		return nil, store.Wrap(err, "invoice summaries")
	}
	return rows, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

// delete removes the row with the given id. Deleting a missing row is not an
// error on the gateway, so it is not reported either.
func (s *Store) delete(ctx context.Context, table string, id uint, op string) error {
	var removed []idRow
	err := s.client.DB.From(table).Delete().Eq("id", idValue(id)).ExecuteWithContext(ctx, &removed)
	return store.Wrap(err, op)
}

// single returns the first row of a representation response.
func single[T any](rows []T, op string) (*T, error) {
	if len(rows) == 0 {
		return nil, store.NotFound(op)
	}
	return &rows[0], nil
}
