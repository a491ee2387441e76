package ledger

import (
	"context"
	"time"

	"debt-ledger/internal/domain/customer"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DebtQuery narrows debt listings at the storage layer. Status is not part
// of the query: it is a derived projection and is filtered after
// classification, never in SQL against stored state.
type DebtQuery struct {
	CustomerID *uuid.UUID
}

type LedgerTotals struct {
	TotalCustomers int64
	TotalDebts     Money
	TotalPaid      Money
	TotalPending   Money
}

type Repository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// BeginSnapshotTx opens a repeatable-read transaction so that every
	// query inside it observes one logical point in time.
	BeginSnapshotTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error

	InsertDebt(ctx context.Context, debt *Debt) error

	GetDebtByID(ctx context.Context, debtID uuid.UUID) (*DebtRecord, error)

	ListDebts(ctx context.Context, query DebtQuery) ([]*DebtRecord, error)

	DeleteDebt(ctx context.Context, debtID uuid.UUID) error

	DeleteSettledDebts(ctx context.Context, customerID uuid.UUID) (int64, error)

	FindDebtForUpdate(ctx context.Context, tx pgx.Tx, debtID uuid.UUID) (*Debt, error)

	InsertPaymentInTx(ctx context.Context, tx pgx.Tx, payment *Payment) error

	UpdateDebtBalanceInTx(ctx context.Context, tx pgx.Tx, debtID uuid.UUID, remaining Money) error

	ListPayments(ctx context.Context, customerID *uuid.UUID) ([]*PaymentRecord, error)

	LedgerTotalsInTx(ctx context.Context, tx pgx.Tx) (*LedgerTotals, error)

	CountOverdueInTx(ctx context.Context, tx pgx.Tx, now time.Time) (int64, error)

	RecentPaymentsInTx(ctx context.Context, tx pgx.Tx, limit int) ([]*PaymentRecord, error)

	DebtsInTx(ctx context.Context, tx pgx.Tx) ([]*DebtRecord, error)

	PaymentsInTx(ctx context.Context, tx pgx.Tx) ([]*Payment, error)

	CustomersInTx(ctx context.Context, tx pgx.Tx) ([]*customer.Customer, error)
}

// DebtRecord is a debt joined with its owner's name for display.
type DebtRecord struct {
	Debt
	CustomerName string
}

type DashboardStats struct {
	TotalCustomers int64
	TotalDebts     Money
	TotalPaid      Money
	TotalPending   Money
	OverdueDebts   int64
	RecentPayments []*PaymentRecord
}

// Snapshot is a fully-materialized, internally consistent view of the
// ledger: every value is read inside one repeatable-read transaction, so
// exported balances always agree with exported payment sums.
type Snapshot struct {
	Customers  []*customer.Customer
	Debts      []*DebtRecord
	Payments   []*Payment
	ExportedAt time.Time
}
