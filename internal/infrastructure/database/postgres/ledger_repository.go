package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"debt-ledger/internal/domain/customer"
	"debt-ledger/internal/domain/ledger"
	"debt-ledger/internal/infrastructure/monitoring"
	"debt-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v3"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

const debtColumns = `id, customer_id, description, product_type, installment_type, total_amount, remaining_amount, due_date, created_at, updated_at`

type LedgerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ ledger.Repository = (*LedgerRepository)(nil)

func NewLedgerRepository(db DBPool, logger *slog.Logger) *LedgerRepository {
	if db == nil {
		panic("DBPool cannot be nil for LedgerRepository")
	}
	return &LedgerRepository{db: db, logger: logger.With("component", "LedgerRepository")}
}

func (r *LedgerRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LedgerRepository) BeginSnapshotTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin snapshot transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LedgerRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LedgerRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LedgerRepository) InsertDebt(ctx context.Context, debt *ledger.Debt) error {
	sql := `
        INSERT INTO debts (id, customer_id, description, product_type, installment_type, total_amount, remaining_amount, due_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	status := "success"
	startTime := time.Now()

	_, err := r.db.Exec(ctx, sql,
		debt.ID, debt.CustomerID, debt.Description, debt.ProductType, debt.InstallmentType,
		debt.TotalAmount, debt.RemainingAmount, debt.DueDate, debt.CreatedAt, debt.UpdatedAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("InsertDebt", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert debt", "debt_id", debt.ID, "error", err)
		return translateDBError(err, r.logger)
	}
	r.logger.InfoContext(ctx, "Debt created in DB", "debt_id", debt.ID)
	return nil
}

func (r *LedgerRepository) GetDebtByID(ctx context.Context, debtID uuid.UUID) (*ledger.DebtRecord, error) {
	query := `
        SELECT d.id, d.customer_id, d.description, d.product_type, d.installment_type,
               d.total_amount, d.remaining_amount, d.due_date, d.created_at, d.updated_at,
               c.name
        FROM debts d
        JOIN customers c ON c.id = d.customer_id
        WHERE d.id = $1`

	status := "success"
	startTime := time.Now()

	var rec ledger.DebtRecord
	err := r.db.QueryRow(ctx, query, debtID).Scan(
		&rec.ID, &rec.CustomerID, &rec.Description, &rec.ProductType, &rec.InstallmentType,
		&rec.TotalAmount, &rec.RemainingAmount, &rec.DueDate, &rec.CreatedAt, &rec.UpdatedAt,
		&rec.CustomerName,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetDebtByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Debt not found", "debt_id", debtID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get debt by ID", "debt_id", debtID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &rec, nil
}

func (r *LedgerRepository) ListDebts(ctx context.Context, query ledger.DebtQuery) ([]*ledger.DebtRecord, error) {
	sql := `
        SELECT d.id, d.customer_id, d.description, d.product_type, d.installment_type,
               d.total_amount, d.remaining_amount, d.due_date, d.created_at, d.updated_at,
               c.name
        FROM debts d
        JOIN customers c ON c.id = d.customer_id`
	args := []any{}
	if query.CustomerID != nil {
		sql += ` WHERE d.customer_id = $1`
		args = append(args, *query.CustomerID)
	}
	sql += ` ORDER BY d.created_at DESC`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query debts", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	return scanDebtRecords(rows, r.logger)
}

func (r *LedgerRepository) DeleteDebt(ctx context.Context, debtID uuid.UUID) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer r.RollbackTx(ctx, tx)

	if _, err := tx.Exec(ctx, `DELETE FROM payments WHERE debt_id = $1`, debtID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete payments for debt", "debt_id", debtID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM debts WHERE id = $1`, debtID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete debt", "debt_id", debtID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Debt not found for deletion", "debt_id", debtID)
		return apperrors.ErrNotFound
	}

	if err := r.CommitTx(ctx, tx); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Debt deleted from DB", "debt_id", debtID)
	return nil
}

func (r *LedgerRepository) DeleteSettledDebts(ctx context.Context, customerID uuid.UUID) (int64, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer r.RollbackTx(ctx, tx)

	paymentsSQL := `
        DELETE FROM payments
        WHERE debt_id IN (SELECT id FROM debts WHERE customer_id = $1 AND remaining_amount = 0)`
	if _, err := tx.Exec(ctx, paymentsSQL, customerID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete payments of settled debts", "customer_id", customerID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM debts WHERE customer_id = $1 AND remaining_amount = 0`, customerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete settled debts", "customer_id", customerID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	if err := r.CommitTx(ctx, tx); err != nil {
		return 0, err
	}

	deleted := cmdTag.RowsAffected()
	r.logger.InfoContext(ctx, "Settled debts deleted from DB", "customer_id", customerID, "count", deleted)
	return deleted, nil
}

func (r *LedgerRepository) FindDebtForUpdate(ctx context.Context, tx pgx.Tx, debtID uuid.UUID) (*ledger.Debt, error) {
	query := `
        SELECT ` + debtColumns + `
        FROM debts
        WHERE id = $1
        FOR UPDATE`

	var d ledger.Debt
	err := tx.QueryRow(ctx, query, debtID).Scan(
		&d.ID, &d.CustomerID, &d.Description, &d.ProductType, &d.InstallmentType,
		&d.TotalAmount, &d.RemainingAmount, &d.DueDate, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Debt not found for update", "debt_id", debtID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to find/lock debt row", "debt_id", debtID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &d, nil
}

func (r *LedgerRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, payment *ledger.Payment) error {
	sql := `
        INSERT INTO payments (id, debt_id, amount, method, notes, payment_date, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, sql,
		payment.ID, payment.DebtID, payment.Amount, payment.Method,
		payment.Notes, payment.PaymentDate, payment.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert payment", "payment_id", payment.ID, "debt_id", payment.DebtID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LedgerRepository) UpdateDebtBalanceInTx(ctx context.Context, tx pgx.Tx, debtID uuid.UUID, remaining ledger.Money) error {
	sql := `UPDATE debts SET remaining_amount = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := tx.Exec(ctx, sql, remaining, debtID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update debt balance", "debt_id", debtID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Debt balance update affected zero rows", "debt_id", debtID)
		return fmt.Errorf("%w: debt balance update affected zero rows", apperrors.ErrDatabase)
	}
	return nil
}

const paymentRecordColumns = `p.id, p.debt_id, p.amount, p.method, p.notes, p.payment_date, p.created_at, d.customer_id, c.name`

func (r *LedgerRepository) ListPayments(ctx context.Context, customerID *uuid.UUID) ([]*ledger.PaymentRecord, error) {
	sql := `
        SELECT ` + paymentRecordColumns + `
        FROM payments p
        JOIN debts d ON d.id = p.debt_id
        JOIN customers c ON c.id = d.customer_id`
	args := []any{}
	if customerID != nil {
		sql += ` WHERE d.customer_id = $1`
		args = append(args, *customerID)
	}
	sql += ` ORDER BY p.payment_date DESC`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query payments", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	return scanPaymentRecords(rows, r.logger)
}

func (r *LedgerRepository) LedgerTotalsInTx(ctx context.Context, tx pgx.Tx) (*ledger.LedgerTotals, error) {
	query := `
        SELECT (SELECT COUNT(*) FROM customers),
               COALESCE(SUM(total_amount), 0),
               COALESCE(SUM(total_amount - remaining_amount), 0),
               COALESCE(SUM(remaining_amount), 0)
        FROM debts`

	var totals ledger.LedgerTotals
	err := tx.QueryRow(ctx, query).Scan(
		&totals.TotalCustomers, &totals.TotalDebts, &totals.TotalPaid, &totals.TotalPending,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to compute ledger totals", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &totals, nil
}

func (r *LedgerRepository) CountOverdueInTx(ctx context.Context, tx pgx.Tx, now time.Time) (int64, error) {
	query := `
        SELECT COUNT(*)
        FROM debts
        WHERE remaining_amount > 0 AND due_date IS NOT NULL AND due_date < $1`

	var count int64
	if err := tx.QueryRow(ctx, query, now).Scan(&count); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count overdue debts", "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}

func (r *LedgerRepository) RecentPaymentsInTx(ctx context.Context, tx pgx.Tx, limit int) ([]*ledger.PaymentRecord, error) {
	query := `
        SELECT ` + paymentRecordColumns + `
        FROM payments p
        JOIN debts d ON d.id = p.debt_id
        JOIN customers c ON c.id = d.customer_id
        ORDER BY p.payment_date DESC
        LIMIT $1`

	rows, err := tx.Query(ctx, query, limit)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query recent payments", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	return scanPaymentRecords(rows, r.logger)
}

func (r *LedgerRepository) DebtsInTx(ctx context.Context, tx pgx.Tx) ([]*ledger.DebtRecord, error) {
	query := `
        SELECT d.id, d.customer_id, d.description, d.product_type, d.installment_type,
               d.total_amount, d.remaining_amount, d.due_date, d.created_at, d.updated_at,
               c.name
        FROM debts d
        JOIN customers c ON c.id = d.customer_id
        ORDER BY d.created_at ASC`

	rows, err := tx.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query debts for export", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	return scanDebtRecords(rows, r.logger)
}

func (r *LedgerRepository) PaymentsInTx(ctx context.Context, tx pgx.Tx) ([]*ledger.Payment, error) {
	query := `
        SELECT id, debt_id, amount, method, notes, payment_date, created_at
        FROM payments
        ORDER BY payment_date ASC`

	rows, err := tx.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query payments for export", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	payments := make([]*ledger.Payment, 0)
	for rows.Next() {
		var p ledger.Payment
		err := rows.Scan(&p.ID, &p.DebtID, &p.Amount, &p.Method, &p.Notes, &p.PaymentDate, &p.CreatedAt)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan payment row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		payments = append(payments, &p)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating payment rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return payments, nil
}

func (r *LedgerRepository) CustomersInTx(ctx context.Context, tx pgx.Tx) ([]*customer.Customer, error) {
	query := `
        SELECT c.id, c.name, c.phone, c.email, c.address, c.notes, c.created_at, c.updated_at,
               COALESCE(SUM(d.remaining_amount), 0) AS total_debt,
               COALESCE(SUM(d.total_amount - d.remaining_amount), 0) AS total_paid
        FROM customers c
        LEFT JOIN debts d ON d.customer_id = c.id
        GROUP BY c.id
        ORDER BY c.created_at ASC`

	rows, err := tx.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query customers for export", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	customers := make([]*customer.Customer, 0)
	for rows.Next() {
		var c customer.Customer
		err := rows.Scan(
			&c.CustomerID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes,
			&c.CreatedAt, &c.UpdatedAt, &c.TotalDebt, &c.TotalPaid,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan customer export row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		customers = append(customers, &c)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating customer export rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return customers, nil
}

func scanDebtRecords(rows pgx.Rows, logger *slog.Logger) ([]*ledger.DebtRecord, error) {
	records := make([]*ledger.DebtRecord, 0)
	for rows.Next() {
		var rec ledger.DebtRecord
		err := rows.Scan(
			&rec.ID, &rec.CustomerID, &rec.Description, &rec.ProductType, &rec.InstallmentType,
			&rec.TotalAmount, &rec.RemainingAmount, &rec.DueDate, &rec.CreatedAt, &rec.UpdatedAt,
			&rec.CustomerName,
		)
		if err != nil {
			logger.Error("Failed to scan debt row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error iterating debt rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return records, nil
}

func scanPaymentRecords(rows pgx.Rows, logger *slog.Logger) ([]*ledger.PaymentRecord, error) {
	records := make([]*ledger.PaymentRecord, 0)
	for rows.Next() {
		var rec ledger.PaymentRecord
		err := rows.Scan(
			&rec.ID, &rec.DebtID, &rec.Amount, &rec.Method, &rec.Notes,
			&rec.PaymentDate, &rec.CreatedAt, &rec.CustomerID, &rec.CustomerName,
		)
		if err != nil {
			logger.Error("Failed to scan payment row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error iterating payment rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return records, nil
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
