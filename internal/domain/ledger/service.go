package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"debt-ledger/internal/domain/customer"
	"debt-ledger/internal/event"
	"debt-ledger/internal/infrastructure/monitoring"
	"debt-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
)

const DefaultRecentPaymentsWindow = 5

type CreateDebtInput struct {
	CustomerID      uuid.UUID
	TotalAmount     Money
	DueDate         *time.Time
	Description     string
	ProductType     ProductType
	InstallmentType InstallmentType
}

type ApplyPaymentInput struct {
	DebtID uuid.UUID
	Amount Money
	Method PaymentMethod
	Notes  string
}

// DebtFilter narrows ListDebts results. The status filter is applied after
// classification against "now", so a debt whose due date has passed since
// the last call shows up as overdue with no write having occurred.
type DebtFilter struct {
	Status     *DebtStatus
	CustomerID *uuid.UUID
}

type LedgerService interface {
	CreateDebt(ctx context.Context, input CreateDebtInput) (*DebtRecord, error)

	GetDebt(ctx context.Context, debtID uuid.UUID) (*DebtRecord, error)

	ListDebts(ctx context.Context, filter DebtFilter) ([]*DebtRecord, error)

	ListOverdueDebts(ctx context.Context) ([]*DebtRecord, error)

	DeleteDebt(ctx context.Context, debtID uuid.UUID) error

	DeleteSettledDebts(ctx context.Context, customerID uuid.UUID) (int64, error)

	ApplyPayment(ctx context.Context, input ApplyPaymentInput) (*Payment, *Debt, error)

	ListPayments(ctx context.Context, customerID *uuid.UUID) ([]*PaymentRecord, error)

	DashboardStats(ctx context.Context) (*DashboardStats, error)

	ExportSnapshot(ctx context.Context) (*Snapshot, error)
}

type ledgerServiceImpl struct {
	repo            Repository
	customerService customer.CustomerService
	pub             event.EventPublisher
	logger          *slog.Logger
	recentWindow    int
}

func NewLedgerService(r Repository, cs customer.CustomerService, pub event.EventPublisher, logger *slog.Logger, recentWindow int) LedgerService {
	if r == nil {
		panic("ledger repository cannot be nil")
	}
	if pub == nil {
		pub = event.NewNoopPublisher()
	}
	if recentWindow <= 0 {
		recentWindow = DefaultRecentPaymentsWindow
	}
	return &ledgerServiceImpl{
		repo:            r,
		customerService: cs,
		pub:             pub,
		logger:          logger.With("component", "LedgerService"),
		recentWindow:    recentWindow,
	}
}

func (s *ledgerServiceImpl) CreateDebt(ctx context.Context, input CreateDebtInput) (*DebtRecord, error) {
	s.logger.InfoContext(ctx, "Creating new debt", "customerID", input.CustomerID)

	owner, err := s.customerService.GetCustomer(ctx, input.CustomerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Customer not found for new debt", "customerID", input.CustomerID)
			return nil, fmt.Errorf("%w: customer %s not found", apperrors.ErrNotFound, input.CustomerID)
		}
		s.logger.ErrorContext(ctx, "Failed to verify customer for new debt", slog.Any("error", err))
		return nil, fmt.Errorf("failed to verify customer: %w", err)
	}

	debt, err := NewDebt(input.CustomerID, input.TotalAmount, input.DueDate, input.Description, input.ProductType, input.InstallmentType)
	if err != nil {
		s.logger.WarnContext(ctx, "Debt validation failed", slog.Any("error", err))
		return nil, err
	}

	if err := s.repo.InsertDebt(ctx, debt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save debt", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to save debt: %v", apperrors.ErrInternalServer, err)
	}
	monitoring.RecordDebtCreated()

	if pubErr := s.pub.PublishDebtCreated(ctx, event.DebtCreatedEvent{
		DebtID:      debt.ID,
		CustomerID:  debt.CustomerID,
		TotalAmount: debt.TotalAmount.StringFixed(2),
		DueDate:     debt.DueDate,
		Timestamp:   time.Now(),
	}); pubErr != nil {
		s.logger.ErrorContext(ctx, "Debt created, but failed to publish creation event", slog.Any("error", pubErr))
	}

	s.logger.InfoContext(ctx, "Debt created successfully", "debtID", debt.ID, "customerID", debt.CustomerID)
	return &DebtRecord{Debt: *debt, CustomerName: owner.Name}, nil
}

func (s *ledgerServiceImpl) GetDebt(ctx context.Context, debtID uuid.UUID) (*DebtRecord, error) {
	s.logger.InfoContext(ctx, "Getting debt", "debtID", debtID)
	debt, err := s.repo.GetDebtByID(ctx, debtID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Debt not found", "debtID", debtID)
			return nil, fmt.Errorf("%w: debt %s not found", apperrors.ErrNotFound, debtID)
		}
		s.logger.ErrorContext(ctx, "Failed to get debt", "debtID", debtID, slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get debt %s: %v", apperrors.ErrInternalServer, debtID, err)
	}
	return debt, nil
}

func (s *ledgerServiceImpl) ListDebts(ctx context.Context, filter DebtFilter) ([]*DebtRecord, error) {
	s.logger.InfoContext(ctx, "Listing debts")

	debts, err := s.repo.ListDebts(ctx, DebtQuery{CustomerID: filter.CustomerID})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list debts", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to list debts: %v", apperrors.ErrInternalServer, err)
	}

	if filter.Status == nil {
		return debts, nil
	}

	now := time.Now().UTC()
	filtered := make([]*DebtRecord, 0, len(debts))
	for _, d := range debts {
		if d.Status(now) == *filter.Status {
			filtered = append(filtered, d)
		}
	}
	s.logger.InfoContext(ctx, "Debts listed", "count", len(filtered), "status", string(*filter.Status))
	return filtered, nil
}

func (s *ledgerServiceImpl) ListOverdueDebts(ctx context.Context) ([]*DebtRecord, error) {
	overdue := StatusOverdue
	return s.ListDebts(ctx, DebtFilter{Status: &overdue})
}

func (s *ledgerServiceImpl) DeleteDebt(ctx context.Context, debtID uuid.UUID) error {
	s.logger.InfoContext(ctx, "Deleting debt", "debtID", debtID)
	err := s.repo.DeleteDebt(ctx, debtID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Debt not found for deletion", "debtID", debtID)
			return fmt.Errorf("%w: debt %s not found", apperrors.ErrNotFound, debtID)
		}
		s.logger.ErrorContext(ctx, "Failed to delete debt", "debtID", debtID, slog.Any("error", err))
		return fmt.Errorf("%w: failed to delete debt %s: %v", apperrors.ErrInternalServer, debtID, err)
	}
	s.logger.InfoContext(ctx, "Debt deleted with its payments", "debtID", debtID)
	return nil
}

func (s *ledgerServiceImpl) DeleteSettledDebts(ctx context.Context, customerID uuid.UUID) (int64, error) {
	s.logger.InfoContext(ctx, "Deleting settled debts for customer", "customerID", customerID)
	deleted, err := s.repo.DeleteSettledDebts(ctx, customerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete settled debts", "customerID", customerID, slog.Any("error", err))
		return 0, fmt.Errorf("%w: failed to delete settled debts: %v", apperrors.ErrInternalServer, err)
	}
	s.logger.InfoContext(ctx, "Settled debts deleted", "customerID", customerID, "count", deleted)
	return deleted, nil
}

func (s *ledgerServiceImpl) ApplyPayment(ctx context.Context, input ApplyPaymentInput) (payment *Payment, updated *Debt, err error) {
	s.logger.InfoContext(ctx, "Applying payment", "debtID", input.DebtID, "amount", input.Amount.StringFixed(2))

	if !input.Amount.IsPositive() {
		monitoring.RecordPayment("failure_amount")
		return nil, nil, fmt.Errorf("%w: payment amount must be greater than zero", apperrors.ErrInvalidArgument)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		return nil, nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "Panic during payment application", "debtID", input.DebtID, slog.Any("panic", p))
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		}
		if err != nil {
			status := "failure_internal"
			switch {
			case errors.Is(err, apperrors.ErrPaymentExceedsRemaining):
				status = "failure_exceeds_remaining"
			case errors.Is(err, apperrors.ErrDebtAlreadySettled):
				status = "failure_already_settled"
			case errors.Is(err, apperrors.ErrNotFound):
				status = "failure_not_found"
			}
			monitoring.RecordPayment(status)
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	// The row lock serializes concurrent payments against the same debt so
	// the balance check and the decrement cannot interleave.
	debt, err := s.repo.FindDebtForUpdate(ctx, tx, input.DebtID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Debt not found for payment", "debtID", input.DebtID)
			return nil, nil, fmt.Errorf("%w: debt %s not found", apperrors.ErrNotFound, input.DebtID)
		}
		s.logger.ErrorContext(ctx, "Failed to lock debt for payment", "debtID", input.DebtID, slog.Any("error", err))
		return nil, nil, fmt.Errorf("%w: could not lock debt: %v", apperrors.ErrInternalServer, err)
	}

	if debt.RemainingAmount.IsZero() {
		s.logger.WarnContext(ctx, "Payment attempted against settled debt", "debtID", debt.ID)
		return nil, nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidArgument, apperrors.ErrDebtAlreadySettled)
	}
	if input.Amount.GreaterThan(debt.RemainingAmount) {
		s.logger.WarnContext(ctx, "Payment exceeds remaining balance",
			"debtID", debt.ID,
			"amount", input.Amount.StringFixed(2),
			"remaining", debt.RemainingAmount.StringFixed(2))
		return nil, nil, fmt.Errorf("%w: %w: %s > %s",
			apperrors.ErrInvalidArgument, apperrors.ErrPaymentExceedsRemaining,
			input.Amount.StringFixed(2), debt.RemainingAmount.StringFixed(2))
	}

	payment, err = NewPayment(debt.ID, input.Amount, input.Method, input.Notes)
	if err != nil {
		return nil, nil, err
	}

	if err = s.repo.InsertPaymentInTx(ctx, tx, payment); err != nil {
		s.logger.ErrorContext(ctx, "Failed to insert payment", "debtID", debt.ID, slog.Any("error", err))
		return nil, nil, fmt.Errorf("%w: could not insert payment: %v", apperrors.ErrInternalServer, err)
	}

	debt.RemainingAmount = debt.RemainingAmount.Sub(payment.Amount)
	debt.UpdatedAt = time.Now().UTC()
	if err = s.repo.UpdateDebtBalanceInTx(ctx, tx, debt.ID, debt.RemainingAmount); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update debt balance", "debtID", debt.ID, slog.Any("error", err))
		return nil, nil, fmt.Errorf("%w: could not update debt balance: %v", apperrors.ErrInternalServer, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit payment transaction", "debtID", debt.ID, slog.Any("error", err))
		return nil, nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}
	monitoring.RecordPayment("success")

	if pubErr := s.pub.PublishPaymentRecorded(ctx, event.PaymentRecordedEvent{
		PaymentID:       payment.ID,
		DebtID:          debt.ID,
		Amount:          payment.Amount.StringFixed(2),
		Method:          string(payment.Method),
		RemainingAmount: debt.RemainingAmount.StringFixed(2),
		Timestamp:       time.Now(),
	}); pubErr != nil {
		s.logger.ErrorContext(ctx, "Payment recorded, but failed to publish event", slog.Any("error", pubErr))
	}

	if debt.RemainingAmount.IsZero() {
		monitoring.RecordDebtSettled()
		if pubErr := s.pub.PublishDebtSettled(ctx, event.DebtSettledEvent{
			DebtID:     debt.ID,
			CustomerID: debt.CustomerID,
			Timestamp:  time.Now(),
		}); pubErr != nil {
			s.logger.ErrorContext(ctx, "Debt settled, but failed to publish event", slog.Any("error", pubErr))
		}
	}

	s.logger.InfoContext(ctx, "Payment applied successfully",
		"debtID", debt.ID,
		"paymentID", payment.ID,
		"remaining", debt.RemainingAmount.StringFixed(2))
	return payment, debt, nil
}

func (s *ledgerServiceImpl) ListPayments(ctx context.Context, customerID *uuid.UUID) ([]*PaymentRecord, error) {
	s.logger.InfoContext(ctx, "Listing payments")
	payments, err := s.repo.ListPayments(ctx, customerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list payments", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to list payments: %v", apperrors.ErrInternalServer, err)
	}
	return payments, nil
}

func (s *ledgerServiceImpl) DashboardStats(ctx context.Context) (stats *DashboardStats, err error) {
	s.logger.InfoContext(ctx, "Computing dashboard stats")

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin stats transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	totals, err := s.repo.LedgerTotalsInTx(ctx, tx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute ledger totals", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to compute totals: %v", apperrors.ErrInternalServer, err)
	}

	now := time.Now().UTC()
	overdue, err := s.repo.CountOverdueInTx(ctx, tx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to count overdue debts", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to count overdue debts: %v", apperrors.ErrInternalServer, err)
	}

	recent, err := s.repo.RecentPaymentsInTx(ctx, tx, s.recentWindow)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load recent payments", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to load recent payments: %v", apperrors.ErrInternalServer, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit stats transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	return &DashboardStats{
		TotalCustomers: totals.TotalCustomers,
		TotalDebts:     totals.TotalDebts,
		TotalPaid:      totals.TotalPaid,
		TotalPending:   totals.TotalPending,
		OverdueDebts:   overdue,
		RecentPayments: recent,
	}, nil
}

func (s *ledgerServiceImpl) ExportSnapshot(ctx context.Context) (snapshot *Snapshot, err error) {
	s.logger.InfoContext(ctx, "Exporting ledger snapshot")

	tx, err := s.repo.BeginSnapshotTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin snapshot transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	customers, err := s.repo.CustomersInTx(ctx, tx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read customers for snapshot", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to read customers: %v", apperrors.ErrInternalServer, err)
	}
	debts, err := s.repo.DebtsInTx(ctx, tx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read debts for snapshot", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to read debts: %v", apperrors.ErrInternalServer, err)
	}
	payments, err := s.repo.PaymentsInTx(ctx, tx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read payments for snapshot", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to read payments: %v", apperrors.ErrInternalServer, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit snapshot transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	s.logger.InfoContext(ctx, "Snapshot exported",
		"customers", len(customers), "debts", len(debts), "payments", len(payments))
	return &Snapshot{
		Customers:  customers,
		Debts:      debts,
		Payments:   payments,
		ExportedAt: time.Now().UTC(),
	}, nil
}
