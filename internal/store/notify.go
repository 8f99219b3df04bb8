package store

import (
	"context"

	"github.com/diewo77/go-facturas/internal/models"
)

// Change event kinds, matching the hosted database's change feed.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
	EventAny    = "*"
)

// Notifier receives a signal after each successful mutation.
type Notifier interface {
	Notify(ctx context.Context, table, event string)
}

// WithNotifier decorates s so that every successful write is followed by a
// change signal. It is used when no external change feed is configured.
func WithNotifier(s Store, n Notifier) Store {
	return &notifyingStore{Store: s, n: n}
}

type notifyingStore struct {
	Store
	n Notifier
}

func (s *notifyingStore) AddProduct(ctx context.Context, p models.NewProduct) (*models.Product, error) {
	out, err := s.Store.AddProduct(ctx, p)
	if err == nil {
		s.n.Notify(ctx, TableProducts, EventInsert)
	}
	return out, err
}

func (s *notifyingStore) UpdateProduct(ctx context.Context, id uint, patch models.ProductPatch) (*models.Product, error) {
	out, err := s.Store.UpdateProduct(ctx, id, patch)
	if err == nil {
		s.n.Notify(ctx, TableProducts, EventUpdate)
	}
	return out, err
}

func (s *notifyingStore) DeleteProduct(ctx context.Context, id uint) error {
	err := s.Store.DeleteProduct(ctx, id)
	if err == nil {
		s.n.Notify(ctx, TableProducts, EventDelete)
	}
	return err
}

func (s *notifyingStore) AddCustomer(ctx context.Context, c models.NewCustomer) (*models.Customer, error) {
	out, err := s.Store.AddCustomer(ctx, c)
	if err == nil {
		s.n.Notify(ctx, TableCustomers, EventInsert)
	}
	return out, err
}

func (s *notifyingStore) UpdateCustomer(ctx context.Context, id uint, patch models.CustomerPatch) (*models.Customer, error) {
	out, err := s.Store.UpdateCustomer(ctx, id, patch)
	if err == nil {
		s.n.Notify(ctx, TableCustomers, EventUpdate)
	}
	return out, err
}

func (s *notifyingStore) DeleteCustomer(ctx context.Context, id uint) error {
	err := s.Store.DeleteCustomer(ctx, id)
	if err == nil {
		s.n.Notify(ctx, TableCustomers, EventDelete)
	}
	return err
}

func (s *notifyingStore) AddInvoice(ctx context.Context, inv models.NewInvoice) (*models.Invoice, error) {
	out, err := s.Store.AddInvoice(ctx, inv)
	if err == nil {
		s.n.Notify(ctx, TableInvoices, EventInsert)
		if len(inv.Items) > 0 {
			s.n.Notify(ctx, TableInvoiceItems, EventInsert)
		}
	}
	return out, err
}

func (s *notifyingStore) UpdateInvoice(ctx context.Context, id uint, patch models.InvoicePatch) (*models.Invoice, error) {
	out, err := s.Store.UpdateInvoice(ctx, id, patch)
	if err == nil {
		s.n.Notify(ctx, TableInvoices, EventUpdate)
	}
	return out, err
}

func (s *notifyingStore) DeleteInvoice(ctx context.Context, id uint) error {
	err := s.Store.DeleteInvoice(ctx, id)
	if err == nil {
		s.n.Notify(ctx, TableInvoices, EventDelete)
		s.n.Notify(ctx, TableInvoiceItems, EventDelete)
	}
	return err
}
