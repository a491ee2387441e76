package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"debt-ledger/internal/domain/customer"
	"debt-ledger/internal/infrastructure/monitoring"
	"debt-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// total_debt is the customer's outstanding balance: the sum of remaining
// amounts, not of the original totals, so it shrinks with every payment.
const customerColumns = `c.id, c.name, c.phone, c.email, c.address, c.notes, c.created_at, c.updated_at,
               COALESCE(SUM(d.remaining_amount), 0) AS total_debt,
               COALESCE(SUM(d.total_amount - d.remaining_amount), 0) AS total_paid`

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerRepository, using default stderr handler")
	}
	return &CustomerRepository{
		db:     db,
		logger: logger.With("component", "CustomerRepository"),
	}
}

func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	upsertSQL := `
        INSERT INTO customers (id, name, phone, email, address, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            phone = EXCLUDED.phone,
            email = EXCLUDED.email,
            address = EXCLUDED.address,
            notes = EXCLUDED.notes,
            updated_at = EXCLUDED.updated_at`

	status := "success"
	startTime := time.Now()

	cmdTag, err := r.db.Exec(ctx, upsertSQL,
		cust.CustomerID,
		cust.Name,
		cust.Phone,
		cust.Email,
		cust.Address,
		cust.Notes,
		cust.CreatedAt,
		cust.UpdatedAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("SaveCustomer", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Database upsert failed", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}

	r.logger.InfoContext(ctx, "Customer upsert successful", slog.Int64("rows_affected", cmdTag.RowsAffected()))
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID uuid.UUID) (*customer.Customer, error) {
	query := `
        SELECT ` + customerColumns + `
        FROM customers c
        LEFT JOIN debts d ON d.customer_id = c.id
        WHERE c.id = $1
        GROUP BY c.id`

	status := "success"
	startTime := time.Now()

	var c customer.Customer
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&c.CustomerID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt, &c.TotalDebt, &c.TotalPaid,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("FindCustomerByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Customer not found", "customer_id", customerID)
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get customer by ID", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &c, nil
}

func (r *CustomerRepository) FindAll(ctx context.Context, search string) ([]*customer.Customer, error) {
	query := `
        SELECT ` + customerColumns + `
        FROM customers c
        LEFT JOIN debts d ON d.customer_id = c.id`
	args := []any{}
	if search != "" {
		query += ` WHERE c.name ILIKE '%' || $1 || '%' OR c.phone ILIKE '%' || $1 || '%'`
		args = append(args, search)
	}
	query += `
        GROUP BY c.id
        ORDER BY c.created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query customers", "error", err)
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
			r.logger.ErrorContext(ctx, "Failed to scan customer row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		customers = append(customers, &c)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating customer rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return customers, nil
}

func (r *CustomerRepository) Delete(ctx context.Context, customerID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", rbErr)
		}
	}()

	var outstanding int64
	countSQL := `SELECT COUNT(*) FROM debts WHERE customer_id = $1 AND remaining_amount > 0`
	if err := tx.QueryRow(ctx, countSQL, customerID).Scan(&outstanding); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count outstanding debts", "customer_id", customerID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if outstanding > 0 {
		r.logger.WarnContext(ctx, "Customer deletion blocked by outstanding debt", "customer_id", customerID, "open_debts", outstanding)
		return customer.ErrHasOutstandingDebt
	}

	paymentsSQL := `
        DELETE FROM payments
        WHERE debt_id IN (SELECT id FROM debts WHERE customer_id = $1)`
	if _, err := tx.Exec(ctx, paymentsSQL, customerID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete customer payments", "customer_id", customerID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM debts WHERE customer_id = $1`, customerID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete customer debts", "customer_id", customerID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM customers WHERE id = $1`, customerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete customer", "customer_id", customerID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Customer not found for deletion", "customer_id", customerID)
		return customer.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Customer deleted from DB", "customer_id", customerID)
	return nil
}
