// Package gormstore implements store.Store on top of gorm, against Postgres in
// production and SQLite in tests and local development.
package gormstore

import (
	"context"
	"errors"

	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/store"
	"gorm.io/gorm"
)

// Store holds the gorm handle. All methods are safe for concurrent use.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return store.Wrap(s.db.WithContext(ctx).Exec("SELECT 1").Error, "ping")
}

// ─────────────────────────────────────────────────────────────────────────────
// Products
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&products).Error; err != nil {
		return nil, store.Wrap(err, "list products")
	}
	return products, nil
}

func (s *Store) AddProduct(ctx context.Context, p models.NewProduct) (*models.Product, error) {
	product := p.Model()
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, store.Wrap(err, "add product")
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id uint, patch models.ProductPatch) (*models.Product, error) {
	var product models.Product
	if err := s.update(ctx, &product, id, patch.Columns(), "update product"); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	return s.delete(ctx, &models.Product{}, id, "delete product")
}

// ─────────────────────────────────────────────────────────────────────────────
// Customers
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&customers).Error; err != nil {
		return nil, store.Wrap(err, "list customers")
	}
	return customers, nil
}

func (s *Store) AddCustomer(ctx context.Context, c models.NewCustomer) (*models.Customer, error) {
	customer := c.Model()
	if err := s.db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, store.Wrap(err, "add customer")
	}
	return &customer, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, id uint, patch models.CustomerPatch) (*models.Customer, error) {
	var customer models.Customer
	if err := s.update(ctx, &customer, id, patch.Columns(), "update customer"); err != nil {
		return nil, err
	}
	return &customer, nil
}

// DeleteCustomer removes only the customer row; its invoices are left in place.
func (s *Store) DeleteCustomer(ctx context.Context, id uint) error {
	return s.delete(ctx, &models.Customer{}, id, "delete customer")
}

// ─────────────────────────────────────────────────────────────────────────────
// Invoices
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) ListInvoices(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&invoices).Error; err != nil {
		return nil, store.Wrap(err, "list invoices")
	}
	return invoices, nil
}

func (s *Store) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&invoice, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.NotFound("get invoice")
	}
	if err != nil {
		return nil, store.Wrap(err, "get invoice")
	}
	return &invoice, nil
}

func (s *Store) AddInvoice(ctx context.Context, n models.NewInvoice) (*models.Invoice, error) {
	invoice := n.Model()
	items := invoice.Items
	invoice.Items = nil
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].InvoiceID = invoice.ID
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, store.Wrap(err, "add invoice")
	}
	invoice.Items = items
	return &invoice, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, id uint, patch models.InvoicePatch) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.update(ctx, &invoice, id, patch.Columns(), "update invoice"); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *Store) DeleteInvoice(ctx context.Context, id uint) error {
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Invoice{}, id)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return store.Wrap(err, "delete invoice")
	}
	if affected == 0 {
		return store.NotFound("delete invoice")
	}
	return nil
}

func (s *Store) LastInvoiceNumber(ctx context.Context) (string, bool, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).Select("invoice_number").
		Order("created_at DESC").Order("id DESC").Limit(1).Take(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, store.Wrap(err, "last invoice number")
	}
	return invoice.InvoiceNumber, true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Dashboard projections
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) ProductSummaries(ctx context.Context) ([]models.ProductSummary, error) {
	var rows []models.ProductSummary
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Select("id", "active", "price").Find(&rows).Error; err != nil {
		return nil, store.Wrap(err, "product summaries")
	}
	return rows, nil
}

func (s *Store) CustomerIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Customer{}).Pluck("id", &ids).Error; err != nil {
		return nil, store.Wrap(err, "customer ids")
	}
	return ids, nil
}

func (s *Store) InvoiceSummaries(ctx context.Context) ([]models.InvoiceSummary, error) {
	var rows []models.InvoiceSummary
	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).Select("total", "status").Find(&rows).Error; err != nil {
		return nil, store.Wrap(err, "invoice summaries")
	}
	return rows, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

// update applies only the given columns and reloads the row into dest.
func (s *Store) update(ctx context.Context, dest any, id uint, cols map[string]any, op string) error {
	db := s.db.WithContext(ctx)
	if len(cols) > 0 {
		res := db.Model(dest).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return store.Wrap(res.Error, op)
		}
		if res.RowsAffected == 0 {
			return store.NotFound(op)
		}
	}
	err := db.First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.NotFound(op)
	}
	return store.Wrap(err, op)
}

func (s *Store) delete(ctx context.Context, model any, id uint, op string) error {
	res := s.db.WithContext(ctx).Delete(model, id)
	if res.Error != nil {
		return store.Wrap(res.Error, op)
	}
	if res.RowsAffected == 0 {
		return store.NotFound(op)
	}
	return nil
}
