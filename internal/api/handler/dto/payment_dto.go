package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"debt-ledger/internal/domain/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ApplyPaymentRequest struct {
	DebtID string      `json:"debtId"`
	Amount json.Number `json:"amount"`
	Method string      `json:"method"`
	Notes  string      `json:"notes,omitempty"`
}

func (r *ApplyPaymentRequest) Validate() error {
	if _, err := uuid.Parse(r.DebtID); err != nil {
		return fmt.Errorf("invalid debtId: %w", err)
	}
	amount, err := decimal.NewFromString(r.Amount.String())
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than zero")
	}
	if _, err := ledger.ParsePaymentMethod(r.Method); err != nil {
		return err
	}
	return nil
}

// ToInput assumes Validate has passed.
func (r *ApplyPaymentRequest) ToInput() ledger.ApplyPaymentInput {
	debtID, _ := uuid.Parse(r.DebtID)
	amount, _ := decimal.NewFromString(r.Amount.String())
	method, _ := ledger.ParsePaymentMethod(r.Method)

	return ledger.ApplyPaymentInput{
		DebtID: debtID,
		Amount: amount,
		Method: method,
		Notes:  r.Notes,
	}
}

type PaymentResponse struct {
	ID           string      `json:"id"`
	DebtID       string      `json:"debtId"`
	CustomerID   string      `json:"customerId,omitempty"`
	CustomerName string      `json:"customerName,omitempty"`
	Amount       json.Number `json:"amount"`
	Method       string      `json:"method"`
	Notes        string      `json:"notes,omitempty"`
	PaymentDate  time.Time   `json:"paymentDate"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// ApplyPaymentResponse pairs the created payment with the updated debt so
// callers see the new balance without a second request.
type ApplyPaymentResponse struct {
	Payment PaymentResponse `json:"payment"`
	Debt    DebtResponse    `json:"debt"`
}

func NewPaymentResponse(p *ledger.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID.String(),
		DebtID:      p.DebtID.String(),
		Amount:      moneyNumber(p.Amount),
		Method:      string(p.Method),
		Notes:       p.Notes,
		PaymentDate: p.PaymentDate,
		CreatedAt:   p.CreatedAt,
	}
}

func NewPaymentRecordResponse(rec *ledger.PaymentRecord) PaymentResponse {
	resp := NewPaymentResponse(&rec.Payment)
	resp.CustomerID = rec.CustomerID.String()
	resp.CustomerName = rec.CustomerName
	return resp
}
