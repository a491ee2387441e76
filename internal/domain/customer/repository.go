package customer

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("customer not found")

	// ErrHasOutstandingDebt blocks deletion of a customer that still owes
	// money; settled history is removable, open obligations are not.
	ErrHasOutstandingDebt = errors.New("customer has outstanding debt")
)

type CustomerRepository interface {
	Save(ctx context.Context, customer *Customer) error

	FindByID(ctx context.Context, customerID uuid.UUID) (*Customer, error)

	// FindAll matches name or phone case-insensitively when search is
	// non-empty. Derived totals are populated on every returned record.
	FindAll(ctx context.Context, search string) ([]*Customer, error)

	// Delete removes the customer and cascades its settled debts and their
	// payments. It fails with ErrHasOutstandingDebt when any owned debt has
	// a positive remaining balance.
	Delete(ctx context.Context, customerID uuid.UUID) error
}
