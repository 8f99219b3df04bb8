package models

import "time"

// Customer represents a client of the business. Email and tax id are not unique.
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Phone     *string   `gorm:"size:50" json:"phone"`
	Address   *string   `gorm:"size:500" json:"address"`
	TaxID     *string   `gorm:"column:tax_id;size:50" json:"tax_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

// TaxIDText returns the tax id or "" when unset.
func (c *Customer) TaxIDText() string {
	if c.TaxID == nil {
		return ""
	}
	return *c.TaxID
}

type NewCustomer struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	TaxID   *string `json:"tax_id"`
}

func (n NewCustomer) Model() Customer {
	return Customer{
		Name:    n.Name,
		Email:   n.Email,
		Phone:   n.Phone,
		Address: n.Address,
		TaxID:   n.TaxID,
	}
}

// CustomerPatch is a partial update: nil fields are left untouched.
type CustomerPatch struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	TaxID   *string `json:"tax_id,omitempty"`
}

func (p CustomerPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Phone != nil {
		cols["phone"] = *p.Phone
	}
	if p.Address != nil {
		cols["address"] = *p.Address
	}
	if p.TaxID != nil {
		cols["tax_id"] = *p.TaxID
	}
	return cols
}

func (p CustomerPatch) Empty() bool { return len(p.Columns()) == 0 }
