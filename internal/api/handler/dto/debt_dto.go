package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"debt-ledger/internal/domain/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateDebtRequest struct {
	CustomerID      string      `json:"customerId"`
	Description     string      `json:"description"`
	ProductType     string      `json:"productType"`
	InstallmentType string      `json:"installmentType"`
	TotalAmount     json.Number `json:"totalAmount"`
	DueDate         *time.Time  `json:"dueDate,omitempty"`
}

func (r *CreateDebtRequest) Validate() error {
	if _, err := uuid.Parse(r.CustomerID); err != nil {
		return fmt.Errorf("invalid customerId: %w", err)
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("description cannot be empty")
	}
	if _, err := ledger.ParseProductType(r.ProductType); err != nil {
		return err
	}
	if _, err := ledger.ParseInstallmentType(r.InstallmentType); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(r.TotalAmount.String())
	if err != nil {
		return fmt.Errorf("invalid totalAmount: %w", err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("totalAmount must be greater than zero")
	}
	return nil
}

// ToInput assumes Validate has passed.
func (r *CreateDebtRequest) ToInput() ledger.CreateDebtInput {
	customerID, _ := uuid.Parse(r.CustomerID)
	productType, _ := ledger.ParseProductType(r.ProductType)
	installmentType, _ := ledger.ParseInstallmentType(r.InstallmentType)
	amount, _ := decimal.NewFromString(r.TotalAmount.String())

	return ledger.CreateDebtInput{
		CustomerID:      customerID,
		TotalAmount:     amount,
		DueDate:         r.DueDate,
		Description:     strings.TrimSpace(r.Description),
		ProductType:     productType,
		InstallmentType: installmentType,
	}
}

type DebtResponse struct {
	ID              string      `json:"id"`
	CustomerID      string      `json:"customerId"`
	CustomerName    string      `json:"customerName,omitempty"`
	Description     string      `json:"description"`
	ProductType     string      `json:"productType"`
	InstallmentType string      `json:"installmentType"`
	TotalAmount     json.Number `json:"totalAmount"`
	RemainingAmount json.Number `json:"remainingAmount"`
	PaidAmount      json.Number `json:"paidAmount"`
	Status          string      `json:"status"`
	DueDate         *time.Time  `json:"dueDate,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func NewDebtResponse(rec *ledger.DebtRecord, now time.Time) DebtResponse {
	return DebtResponse{
		ID:              rec.ID.String(),
		CustomerID:      rec.CustomerID.String(),
		CustomerName:    rec.CustomerName,
		Description:     rec.Description,
		ProductType:     string(rec.ProductType),
		InstallmentType: string(rec.InstallmentType),
		TotalAmount:     moneyNumber(rec.TotalAmount),
		RemainingAmount: moneyNumber(rec.RemainingAmount),
		PaidAmount:      moneyNumber(rec.PaidAmount()),
		Status:          string(rec.Status(now)),
		DueDate:         rec.DueDate,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}
