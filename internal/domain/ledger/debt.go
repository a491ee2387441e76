package ledger

import (
	"debt-ledger/internal/pkg/apperrors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Money is the fixed-precision type used for every monetary field in the
// ledger. Repeated additions and subtractions must not drift.
type Money = decimal.Decimal

type DebtStatus string

const (
	StatusPending DebtStatus = "pending"
	StatusPartial DebtStatus = "partial"
	StatusPaid    DebtStatus = "paid"
	StatusOverdue DebtStatus = "overdue"
)

func ParseDebtStatus(s string) (DebtStatus, error) {
	switch DebtStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusPartial:
		return StatusPartial, nil
	case StatusPaid:
		return StatusPaid, nil
	case StatusOverdue:
		return StatusOverdue, nil
	}
	return "", fmt.Errorf("%w: unknown debt status %q", apperrors.ErrInvalidArgument, s)
}

type ProductType string

const (
	ProductShirts      ProductType = "shirts"
	ProductPants       ProductType = "pants"
	ProductJackets     ProductType = "jackets"
	ProductAccessories ProductType = "accessories"
	ProductOther       ProductType = "other"
)

func ParseProductType(s string) (ProductType, error) {
	switch ProductType(strings.ToLower(strings.TrimSpace(s))) {
	case ProductShirts:
		return ProductShirts, nil
	case ProductPants:
		return ProductPants, nil
	case ProductJackets:
		return ProductJackets, nil
	case ProductAccessories:
		return ProductAccessories, nil
	case ProductOther:
		return ProductOther, nil
	}
	return "", fmt.Errorf("%w: unknown product type %q", apperrors.ErrInvalidArgument, s)
}

// InstallmentType is a descriptive cadence tag only. It does not generate a
// payment schedule.
type InstallmentType string

const (
	InstallmentWeekly  InstallmentType = "weekly"
	InstallmentMonthly InstallmentType = "monthly"
	InstallmentOneTime InstallmentType = "one-time"
)

func ParseInstallmentType(s string) (InstallmentType, error) {
	switch InstallmentType(strings.ToLower(strings.TrimSpace(s))) {
	case InstallmentWeekly:
		return InstallmentWeekly, nil
	case InstallmentMonthly:
		return InstallmentMonthly, nil
	case InstallmentOneTime:
		return InstallmentOneTime, nil
	}
	return "", fmt.Errorf("%w: unknown installment type %q", apperrors.ErrInvalidArgument, s)
}

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MethodCash:
		return MethodCash, nil
	case MethodCard:
		return MethodCard, nil
	case MethodTransfer:
		return MethodTransfer, nil
	}
	return "", fmt.Errorf("%w: unknown payment method %q", apperrors.ErrInvalidArgument, s)
}

type Debt struct {
	ID              uuid.UUID
	CustomerID      uuid.UUID
	Description     string
	ProductType     ProductType
	InstallmentType InstallmentType
	TotalAmount     Money
	RemainingAmount Money
	DueDate         *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewDebt(customerID uuid.UUID, totalAmount Money, dueDate *time.Time, description string, productType ProductType, installmentType InstallmentType) (*Debt, error) {
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer id is required", apperrors.ErrInvalidArgument)
	}
	if !totalAmount.IsPositive() {
		return nil, fmt.Errorf("%w: total amount must be greater than zero", apperrors.ErrInvalidArgument)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: description cannot be empty", apperrors.ErrInvalidArgument)
	}

	now := time.Now().UTC()
	return &Debt{
		ID:              uuid.New(),
		CustomerID:      customerID,
		Description:     description,
		ProductType:     productType,
		InstallmentType: installmentType,
		TotalAmount:     totalAmount,
		RemainingAmount: totalAmount,
		DueDate:         dueDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// PaidAmount is derived, never stored.
func (d *Debt) PaidAmount() Money {
	return d.TotalAmount.Sub(d.RemainingAmount)
}

// Status projects the debt's settlement state for the given instant. The
// status is never persisted; it is always recomputed from the balance and
// the due date so it cannot desync from the ledger.
func (d *Debt) Status(now time.Time) DebtStatus {
	return ClassifyStatus(d.RemainingAmount, d.TotalAmount, d.DueDate, now)
}

// ClassifyStatus maps (remaining, total, due date, now) to a debt status.
// A settled debt is paid regardless of its due date, and a debt without a
// due date can never become overdue.
func ClassifyStatus(remaining, total Money, dueDate *time.Time, now time.Time) DebtStatus {
	if remaining.IsZero() {
		return StatusPaid
	}
	if dueDate != nil && dueDate.Before(now) {
		return StatusOverdue
	}
	if remaining.LessThan(total) {
		return StatusPartial
	}
	return StatusPending
}

type Payment struct {
	ID          uuid.UUID
	DebtID      uuid.UUID
	Amount      Money
	Method      PaymentMethod
	Notes       string
	PaymentDate time.Time
	CreatedAt   time.Time
}

func NewPayment(debtID uuid.UUID, amount Money, method PaymentMethod, notes string) (*Payment, error) {
	if debtID == uuid.Nil {
		return nil, fmt.Errorf("%w: debt id is required", apperrors.ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be greater than zero", apperrors.ErrInvalidArgument)
	}

	now := time.Now().UTC()
	return &Payment{
		ID:          uuid.New(),
		DebtID:      debtID,
		Amount:      amount,
		Method:      method,
		Notes:       strings.TrimSpace(notes),
		PaymentDate: now,
		CreatedAt:   now,
	}, nil
}

// PaymentRecord is a payment joined with display data from its owning debt
// for listings and the dashboard's recent-activity window.
type PaymentRecord struct {
	Payment
	CustomerID   uuid.UUID
	CustomerName string
}
