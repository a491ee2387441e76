package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"debt-ledger/internal/domain/customer"
	"debt-ledger/internal/event"
	"debt-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubTx satisfies pgx.Tx for service tests; the mocked repository never
// touches the transaction itself.
type stubTx struct{}

func (stubTx) Begin(ctx context.Context) (pgx.Tx, error) { return stubTx{}, nil }
func (stubTx) Commit(ctx context.Context) error          { return nil }
func (stubTx) Rollback(ctx context.Context) error        { return nil }
func (stubTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (stubTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (stubTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (stubTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (stubTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (stubTx) Conn() *pgx.Conn                                               { return nil }

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockRepository) BeginSnapshotTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockRepository) InsertDebt(ctx context.Context, debt *Debt) error {
	return m.Called(ctx, debt).Error(0)
}

func (m *MockRepository) GetDebtByID(ctx context.Context, debtID uuid.UUID) (*DebtRecord, error) {
	args := m.Called(ctx, debtID)
	if rec, ok := args.Get(0).(*DebtRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) ListDebts(ctx context.Context, query DebtQuery) ([]*DebtRecord, error) {
	args := m.Called(ctx, query)
	if recs, ok := args.Get(0).([]*DebtRecord); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) DeleteDebt(ctx context.Context, debtID uuid.UUID) error {
	return m.Called(ctx, debtID).Error(0)
}

func (m *MockRepository) DeleteSettledDebts(ctx context.Context, customerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) FindDebtForUpdate(ctx context.Context, tx pgx.Tx, debtID uuid.UUID) (*Debt, error) {
	args := m.Called(ctx, tx, debtID)
	if d, ok := args.Get(0).(*Debt); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, payment *Payment) error {
	return m.Called(ctx, tx, payment).Error(0)
}

func (m *MockRepository) UpdateDebtBalanceInTx(ctx context.Context, tx pgx.Tx, debtID uuid.UUID, remaining Money) error {
	return m.Called(ctx, tx, debtID, remaining).Error(0)
}

func (m *MockRepository) ListPayments(ctx context.Context, customerID *uuid.UUID) ([]*PaymentRecord, error) {
	args := m.Called(ctx, customerID)
	if recs, ok := args.Get(0).([]*PaymentRecord); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) LedgerTotalsInTx(ctx context.Context, tx pgx.Tx) (*LedgerTotals, error) {
	args := m.Called(ctx, tx)
	if totals, ok := args.Get(0).(*LedgerTotals); ok {
		return totals, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) CountOverdueInTx(ctx context.Context, tx pgx.Tx, now time.Time) (int64, error) {
	args := m.Called(ctx, tx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) RecentPaymentsInTx(ctx context.Context, tx pgx.Tx, limit int) ([]*PaymentRecord, error) {
	args := m.Called(ctx, tx, limit)
	if recs, ok := args.Get(0).([]*PaymentRecord); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) DebtsInTx(ctx context.Context, tx pgx.Tx) ([]*DebtRecord, error) {
	args := m.Called(ctx, tx)
	if recs, ok := args.Get(0).([]*DebtRecord); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) PaymentsInTx(ctx context.Context, tx pgx.Tx) ([]*Payment, error) {
	args := m.Called(ctx, tx)
	if recs, ok := args.Get(0).([]*Payment); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) CustomersInTx(ctx context.Context, tx pgx.Tx) ([]*customer.Customer, error) {
	args := m.Called(ctx, tx)
	if recs, ok := args.Get(0).([]*customer.Customer); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) CreateCustomer(ctx context.Context, name, phone, email, address, notes string) (*customer.Customer, error) {
	args := m.Called(ctx, name, phone, email, address, notes)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) GetCustomer(ctx context.Context, customerID uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, customerID)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) ListCustomers(ctx context.Context, search string) ([]*customer.Customer, error) {
	args := m.Called(ctx, search)
	if cs, ok := args.Get(0).([]*customer.Customer); ok {
		return cs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) UpdateCustomer(ctx context.Context, customerID uuid.UUID, update customer.Update) (*customer.Customer, error) {
	args := m.Called(ctx, customerID, update)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) DeleteCustomer(ctx context.Context, customerID uuid.UUID) error {
	return m.Called(ctx, customerID).Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishCustomerCreated(ctx context.Context, evt event.CustomerCreatedEvent) error {
	return m.Called(ctx, evt).Error(0)
}

func (m *MockEventPublisher) PublishCustomerUpdated(ctx context.Context, evt event.CustomerUpdatedEvent) error {
	return m.Called(ctx, evt).Error(0)
}

func (m *MockEventPublisher) PublishDebtCreated(ctx context.Context, evt event.DebtCreatedEvent) error {
	return m.Called(ctx, evt).Error(0)
}

func (m *MockEventPublisher) PublishPaymentRecorded(ctx context.Context, evt event.PaymentRecordedEvent) error {
	return m.Called(ctx, evt).Error(0)
}

func (m *MockEventPublisher) PublishDebtSettled(ctx context.Context, evt event.DebtSettledEvent) error {
	return m.Called(ctx, evt).Error(0)
}

func setupLedgerService(t *testing.T) (*MockRepository, *MockCustomerService, *MockEventPublisher, LedgerService) {
	t.Helper()
	repo := new(MockRepository)
	customerSvc := new(MockCustomerService)
	pub := new(MockEventPublisher)
	svc := NewLedgerService(repo, customerSvc, pub, logger, DefaultRecentPaymentsWindow)
	return repo, customerSvc, pub, svc
}

func newOpenDebt(remaining, total int64) *Debt {
	now := time.Now().UTC()
	return &Debt{
		ID:              uuid.New(),
		CustomerID:      uuid.New(),
		Description:     "3 camisas",
		ProductType:     ProductShirts,
		InstallmentType: InstallmentWeekly,
		TotalAmount:     decimal.NewFromInt(total),
		RemainingAmount: decimal.NewFromInt(remaining),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestCreateDebtSuccess(t *testing.T) {
	repo, customerSvc, pub, svc := setupLedgerService(t)
	ctx := context.Background()

	owner := customer.NewCustomer("Maria Lopez", "555-0134", "", "", "")
	customerSvc.On("GetCustomer", ctx, owner.CustomerID).Return(owner, nil)
	repo.On("InsertDebt", ctx, mock.AnythingOfType("*ledger.Debt")).Return(nil)
	pub.On("PublishDebtCreated", ctx, mock.AnythingOfType("event.DebtCreatedEvent")).Return(nil)

	rec, err := svc.CreateDebt(ctx, CreateDebtInput{
		CustomerID:      owner.CustomerID,
		TotalAmount:     decimal.NewFromInt(150),
		Description:     "3 camisas",
		ProductType:     ProductShirts,
		InstallmentType: InstallmentWeekly,
	})

	assert.NoError(t, err)
	assert.Equal(t, owner.CustomerID, rec.CustomerID)
	assert.Equal(t, "Maria Lopez", rec.CustomerName)
	assert.True(t, rec.RemainingAmount.Equal(decimal.NewFromInt(150)))
	repo.AssertExpectations(t)
	customerSvc.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCreateDebtUnknownCustomer(t *testing.T) {
	repo, customerSvc, _, svc := setupLedgerService(t)
	ctx := context.Background()

	customerID := uuid.New()
	customerSvc.On("GetCustomer", ctx, customerID).Return(nil, customer.ErrNotFound)

	rec, err := svc.CreateDebt(ctx, CreateDebtInput{
		CustomerID:  customerID,
		TotalAmount: decimal.NewFromInt(150),
		Description: "3 camisas",
	})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, rec)
	repo.AssertNotCalled(t, "InsertDebt", mock.Anything, mock.Anything)
}

func TestCreateDebtInvalidAmount(t *testing.T) {
	repo, customerSvc, _, svc := setupLedgerService(t)
	ctx := context.Background()

	owner := customer.NewCustomer("Maria Lopez", "555-0134", "", "", "")
	customerSvc.On("GetCustomer", ctx, owner.CustomerID).Return(owner, nil)

	_, err := svc.CreateDebt(ctx, CreateDebtInput{
		CustomerID:  owner.CustomerID,
		TotalAmount: decimal.Zero,
		Description: "3 camisas",
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	repo.AssertNotCalled(t, "InsertDebt", mock.Anything, mock.Anything)
}

func TestApplyPaymentPartial(t *testing.T) {
	repo, _, pub, svc := setupLedgerService(t)
	ctx := context.Background()

	debt := newOpenDebt(150, 150)
	tx := stubTx{}

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("FindDebtForUpdate", ctx, tx, debt.ID).Return(debt, nil)
	repo.On("InsertPaymentInTx", ctx, tx, mock.AnythingOfType("*ledger.Payment")).Return(nil)
	repo.On("UpdateDebtBalanceInTx", ctx, tx, debt.ID, mock.MatchedBy(func(m Money) bool {
		return m.Equal(decimal.NewFromInt(100))
	})).Return(nil)
	repo.On("CommitTx", ctx, tx).Return(nil)
	pub.On("PublishPaymentRecorded", ctx, mock.AnythingOfType("event.PaymentRecordedEvent")).Return(nil)

	payment, updated, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		DebtID: debt.ID,
		Amount: decimal.NewFromInt(50),
		Method: MethodCash,
	})

	assert.NoError(t, err)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(50)))
	assert.True(t, updated.RemainingAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, StatusPartial, updated.Status(time.Now().UTC()))
	repo.AssertExpectations(t)
	pub.AssertNotCalled(t, "PublishDebtSettled", mock.Anything, mock.Anything)
}

func TestApplyPaymentSettlesDebt(t *testing.T) {
	repo, _, pub, svc := setupLedgerService(t)
	ctx := context.Background()

	debt := newOpenDebt(50, 150)
	tx := stubTx{}

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("FindDebtForUpdate", ctx, tx, debt.ID).Return(debt, nil)
	repo.On("InsertPaymentInTx", ctx, tx, mock.AnythingOfType("*ledger.Payment")).Return(nil)
	repo.On("UpdateDebtBalanceInTx", ctx, tx, debt.ID, mock.MatchedBy(func(m Money) bool {
		return m.IsZero()
	})).Return(nil)
	repo.On("CommitTx", ctx, tx).Return(nil)
	pub.On("PublishPaymentRecorded", ctx, mock.AnythingOfType("event.PaymentRecordedEvent")).Return(nil)
	pub.On("PublishDebtSettled", ctx, mock.AnythingOfType("event.DebtSettledEvent")).Return(nil)

	_, updated, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		DebtID: debt.ID,
		Amount: decimal.NewFromInt(50),
		Method: MethodTransfer,
	})

	assert.NoError(t, err)
	assert.True(t, updated.RemainingAmount.IsZero())
	assert.Equal(t, StatusPaid, updated.Status(time.Now().UTC()))
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestApplyPaymentExceedsRemaining(t *testing.T) {
	repo, _, _, svc := setupLedgerService(t)
	ctx := context.Background()

	debt := newOpenDebt(40, 150)
	tx := stubTx{}

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("FindDebtForUpdate", ctx, tx, debt.ID).Return(debt, nil)
	repo.On("RollbackTx", ctx, tx).Return(nil)

	payment, updated, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		DebtID: debt.ID,
		Amount: decimal.NewFromInt(41),
		Method: MethodCash,
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.ErrorIs(t, err, apperrors.ErrPaymentExceedsRemaining)
	assert.Nil(t, payment)
	assert.Nil(t, updated)
	repo.AssertNotCalled(t, "InsertPaymentInTx", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertCalled(t, "RollbackTx", ctx, tx)
}

func TestApplyPaymentCompetingPaymentsOnlyOneSucceeds(t *testing.T) {
	repo, _, pub, svc := setupLedgerService(t)
	ctx := context.Background()

	// Two 60.00 payments race against a 100.00 debt. The row lock
	// serializes them: the loser re-reads the post-commit balance of
	// 40.00, so its 60.00 no longer fits.
	first := newOpenDebt(100, 100)
	second := &Debt{}
	*second = *first
	second.RemainingAmount = decimal.NewFromInt(40)
	tx := stubTx{}

	repo.On("BeginTx", ctx).Return(tx, nil).Twice()
	repo.On("FindDebtForUpdate", ctx, tx, first.ID).Return(first, nil).Once()
	repo.On("FindDebtForUpdate", ctx, tx, first.ID).Return(second, nil).Once()
	repo.On("InsertPaymentInTx", ctx, tx, mock.AnythingOfType("*ledger.Payment")).Return(nil).Once()
	repo.On("UpdateDebtBalanceInTx", ctx, tx, first.ID, mock.MatchedBy(func(m Money) bool {
		return m.Equal(decimal.NewFromInt(40))
	})).Return(nil).Once()
	repo.On("CommitTx", ctx, tx).Return(nil).Once()
	repo.On("RollbackTx", ctx, tx).Return(nil).Once()
	pub.On("PublishPaymentRecorded", ctx, mock.AnythingOfType("event.PaymentRecordedEvent")).Return(nil).Once()

	input := ApplyPaymentInput{
		DebtID: first.ID,
		Amount: decimal.NewFromInt(60),
		Method: MethodCash,
	}

	payment, updated, err := svc.ApplyPayment(ctx, input)
	assert.NoError(t, err)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(60)))
	assert.True(t, updated.RemainingAmount.Equal(decimal.NewFromInt(40)))

	losingPayment, losingDebt, err := svc.ApplyPayment(ctx, input)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.ErrorIs(t, err, apperrors.ErrPaymentExceedsRemaining)
	assert.Nil(t, losingPayment)
	assert.Nil(t, losingDebt)

	// The losing attempt left the balance untouched and never negative.
	assert.True(t, second.RemainingAmount.Equal(decimal.NewFromInt(40)))
	assert.False(t, second.RemainingAmount.IsNegative())
	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "InsertPaymentInTx", 1)
	repo.AssertNumberOfCalls(t, "CommitTx", 1)
	pub.AssertExpectations(t)
}

func TestApplyPaymentExactRemainingAllowed(t *testing.T) {
	repo, _, pub, svc := setupLedgerService(t)
	ctx := context.Background()

	debt := newOpenDebt(40, 150)
	tx := stubTx{}

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("FindDebtForUpdate", ctx, tx, debt.ID).Return(debt, nil)
	repo.On("InsertPaymentInTx", ctx, tx, mock.AnythingOfType("*ledger.Payment")).Return(nil)
	repo.On("UpdateDebtBalanceInTx", ctx, tx, debt.ID, mock.MatchedBy(func(m Money) bool {
		return m.IsZero()
	})).Return(nil)
	repo.On("CommitTx", ctx, tx).Return(nil)
	pub.On("PublishPaymentRecorded", ctx, mock.AnythingOfType("event.PaymentRecordedEvent")).Return(nil)
	pub.On("PublishDebtSettled", ctx, mock.AnythingOfType("event.DebtSettledEvent")).Return(nil)

	_, _, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		DebtID: debt.ID,
		Amount: decimal.NewFromInt(40),
		Method: MethodCash,
	})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestApplyPaymentOnSettledDebt(t *testing.T) {
	repo, _, _, svc := setupLedgerService(t)
	ctx := context.Background()

	debt := newOpenDebt(0, 150)
	tx := stubTx{}

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("FindDebtForUpdate", ctx, tx, debt.ID).Return(debt, nil)
	repo.On("RollbackTx", ctx, tx).Return(nil)

	_, _, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		DebtID: debt.ID,
		Amount: decimal.NewFromInt(10),
		Method: MethodCash,
	})

	assert.ErrorIs(t, err, apperrors.ErrDebtAlreadySettled)
	repo.AssertNotCalled(t, "InsertPaymentInTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyPaymentNonPositiveAmount(t *testing.T) {
	repo, _, _, svc := setupLedgerService(t)
	ctx := context.Background()

	_, _, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		DebtID: uuid.New(),
		Amount: decimal.Zero,
		Method: MethodCash,
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	repo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestApplyPaymentDebtNotFound(t *testing.T) {
	repo, _, _, svc := setupLedgerService(t)
	ctx := context.Background()

	debtID := uuid.New()
	tx := stubTx{}

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("FindDebtForUpdate", ctx, tx, debtID).Return(nil, apperrors.ErrNotFound)
	repo.On("RollbackTx", ctx, tx).Return(nil)

	_, _, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		DebtID: debtID,
		Amount: decimal.NewFromInt(10),
		Method: MethodCash,
	})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListDebtsFiltersByDerivedStatus(t *testing.T) {
	repo, _, _, svc := setupLedgerService(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-48 * time.Hour)
	open := newOpenDebt(100, 100)
	overdue := newOpenDebt(60, 100)
	overdue.DueDate = &past
	settled := newOpenDebt(0, 100)

	records := []*DebtRecord{
		{Debt: *open, CustomerName: "Maria Lopez"},
		{Debt: *overdue, CustomerName: "Ana Ruiz"},
		{Debt: *settled, CustomerName: "Jose Perez"},
	}
	repo.On("ListDebts", ctx, DebtQuery{}).Return(records, nil)

	overdueStatus := StatusOverdue
	filtered, err := svc.ListDebts(ctx, DebtFilter{Status: &overdueStatus})
	assert.NoError(t, err)
	assert.Len(t, filtered, 1)
	assert.Equal(t, overdue.ID, filtered[0].ID)

	paidStatus := StatusPaid
	filtered, err = svc.ListDebts(ctx, DebtFilter{Status: &paidStatus})
	assert.NoError(t, err)
	assert.Len(t, filtered, 1)
	assert.Equal(t, settled.ID, filtered[0].ID)
}

func TestListOverdueDebts(t *testing.T) {
	repo, _, _, svc := setupLedgerService(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	overdue := newOpenDebt(60, 100)
	overdue.DueDate = &past

	repo.On("ListDebts", ctx, DebtQuery{}).Return([]*DebtRecord{
		{Debt: *overdue, CustomerName: "Ana Ruiz"},
		{Debt: *newOpenDebt(100, 100), CustomerName: "Maria Lopez"},
	}, nil)

	records, err := svc.ListOverdueDebts(ctx)
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, overdue.ID, records[0].ID)
}

func TestDeleteSettledDebtsReturnsCount(t *testing.T) {
	repo, _, _, svc := setupLedgerService(t)
	ctx := context.Background()

	customerID := uuid.New()
	repo.On("DeleteSettledDebts", ctx, customerID).Return(int64(3), nil)

	deleted, err := svc.DeleteSettledDebts(ctx, customerID)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

func TestDashboardStatsAssemblesTotals(t *testing.T) {
	repo, _, _, svc := setupLedgerService(t)
	ctx := context.Background()

	tx := stubTx{}
	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("LedgerTotalsInTx", ctx, tx).Return(&LedgerTotals{
		TotalCustomers: 7,
		TotalDebts:     decimal.NewFromInt(1000),
		TotalPaid:      decimal.NewFromInt(400),
		TotalPending:   decimal.NewFromInt(600),
	}, nil)
	repo.On("CountOverdueInTx", ctx, tx, mock.AnythingOfType("time.Time")).Return(int64(2), nil)
	repo.On("RecentPaymentsInTx", ctx, tx, DefaultRecentPaymentsWindow).Return([]*PaymentRecord{}, nil)
	repo.On("CommitTx", ctx, tx).Return(nil)

	stats, err := svc.DashboardStats(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), stats.TotalCustomers)
	assert.True(t, stats.TotalDebts.Equal(decimal.NewFromInt(1000)))
	assert.True(t, stats.TotalPaid.Equal(decimal.NewFromInt(400)))
	assert.True(t, stats.TotalPending.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, int64(2), stats.OverdueDebts)
	repo.AssertExpectations(t)
}

func TestExportSnapshotUsesSnapshotTx(t *testing.T) {
	repo, _, _, svc := setupLedgerService(t)
	ctx := context.Background()

	tx := stubTx{}
	cust := customer.NewCustomer("Maria Lopez", "555-0134", "", "", "")
	debt := newOpenDebt(100, 100)
	payment := &Payment{ID: uuid.New(), DebtID: debt.ID, Amount: decimal.NewFromInt(25)}

	repo.On("BeginSnapshotTx", ctx).Return(tx, nil)
	repo.On("CustomersInTx", ctx, tx).Return([]*customer.Customer{cust}, nil)
	repo.On("DebtsInTx", ctx, tx).Return([]*DebtRecord{{Debt: *debt, CustomerName: cust.Name}}, nil)
	repo.On("PaymentsInTx", ctx, tx).Return([]*Payment{payment}, nil)
	repo.On("CommitTx", ctx, tx).Return(nil)

	snapshot, err := svc.ExportSnapshot(ctx)
	assert.NoError(t, err)
	assert.Len(t, snapshot.Customers, 1)
	assert.Len(t, snapshot.Debts, 1)
	assert.Len(t, snapshot.Payments, 1)
	assert.False(t, snapshot.ExportedAt.IsZero())
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "BeginTx", mock.Anything)
}
