package customer

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Customer struct {
	CustomerID uuid.UUID
	Name       string
	Phone      string
	Email      string
	Address    string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// TotalDebt is the outstanding balance (sum of remaining amounts) and
	// TotalPaid the sum of applied payments. Both are derived from the
	// customer's debts at read time and are never stored.
	TotalDebt decimal.Decimal
	TotalPaid decimal.Decimal
}

func NewCustomer(name, phone, email, address, notes string) *Customer {
	now := time.Now().UTC()
	return &Customer{
		CustomerID: uuid.New(),
		Name:       strings.TrimSpace(name),
		Phone:      strings.TrimSpace(phone),
		Email:      strings.TrimSpace(email),
		Address:    strings.TrimSpace(address),
		Notes:      strings.TrimSpace(notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Update applies the non-nil fields and reports whether anything changed.
type Update struct {
	Name    *string
	Phone   *string
	Email   *string
	Address *string
	Notes   *string
}

func (u Update) IsEmpty() bool {
	return u.Name == nil && u.Phone == nil && u.Email == nil && u.Address == nil && u.Notes == nil
}

func (c *Customer) Apply(u Update) bool {
	changed := false
	set := func(dst *string, src *string) {
		if src != nil && *dst != strings.TrimSpace(*src) {
			*dst = strings.TrimSpace(*src)
			changed = true
		}
	}
	set(&c.Name, u.Name)
	set(&c.Phone, u.Phone)
	set(&c.Email, u.Email)
	set(&c.Address, u.Address)
	set(&c.Notes, u.Notes)
	if changed {
		c.UpdatedAt = time.Now().UTC()
	}
	return changed
}
