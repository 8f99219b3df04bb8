package pages

import (
	"context"
	"strings"

	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/store"
	"github.com/diewo77/go-facturas/validation"
	"github.com/samber/lo"
)

// CustomerList is the customers screen: every customer plus a search term.
type CustomerList struct {
	Customers []models.Customer `json:"customers"`
	Search    string            `json:"search"`
}

func LoadCustomerList(ctx context.Context, s store.CustomerStore, search string) (*CustomerList, error) {
	customers, err := s.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	return &CustomerList{Customers: customers, Search: search}, nil
}

// Filtered returns the customers whose name, email or tax id contain the search term.
func (l *CustomerList) Filtered() []models.Customer {
	return lo.Filter(l.Customers, func(c models.Customer, _ int) bool {
		return matchesAny(l.Search, c.Name, c.Email, c.TaxIDText())
	})
}

// CustomerForm is the add/edit dialog.
type CustomerForm struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	TaxID   string `json:"tax_id"`
}

// CustomerFormFrom pre-fills the form for editing c.
func CustomerFormFrom(c models.Customer) CustomerForm {
	return CustomerForm{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   deref(c.Phone),
		Address: deref(c.Address),
		TaxID:   deref(c.TaxID),
	}
}

func (f CustomerForm) Validate() validation.Violations {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	return validation.Struct(f)
}

func (f CustomerForm) New() models.NewCustomer {
	return models.NewCustomer{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Phone:   optional(f.Phone),
		Address: optional(f.Address),
		TaxID:   optional(f.TaxID),
	}
}

// Patch writes every form field; blank optional fields are stored empty.
func (f CustomerForm) Patch() models.CustomerPatch {
	name := strings.TrimSpace(f.Name)
	email := strings.TrimSpace(f.Email)
	phone := strings.TrimSpace(f.Phone)
	address := strings.TrimSpace(f.Address)
	taxID := strings.TrimSpace(f.TaxID)
	return models.CustomerPatch{Name: &name, Email: &email, Phone: &phone, Address: &address, TaxID: &taxID}
}

// Save adds a customer, or updates customer id when id is non-zero.
func (f CustomerForm) Save(ctx context.Context, s store.CustomerStore, id uint) (*models.Customer, error) {
	if err := f.Validate().Err(); err != nil {
		return nil, err
	}
	if id == 0 {
		return s.AddCustomer(ctx, f.New())
	}
	return s.UpdateCustomer(ctx, id, f.Patch())
}

// ValidateCustomerPatch checks the fields present in a partial update.
func ValidateCustomerPatch(p models.CustomerPatch) validation.Violations {
	v := validation.Violations{}
	if p.Name != nil {
		validation.Required("name", *p.Name, v)
	}
	if p.Email != nil {
		if strings.TrimSpace(*p.Email) == "" {
			v["email"] = "required"
		} else if err := validation.Validator().Var(*p.Email, "email"); err != nil {
			v["email"] = "invalid_email"
		}
	}
	return v
}
