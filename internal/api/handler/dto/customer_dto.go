package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"debt-ledger/internal/domain/customer"
)

type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

func (r *CreateCustomerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if strings.TrimSpace(r.Phone) == "" {
		return fmt.Errorf("phone cannot be empty")
	}
	return nil
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

func (r *UpdateCustomerRequest) Validate() error {
	if r.Name == nil && r.Phone == nil && r.Email == nil && r.Address == nil && r.Notes == nil {
		return fmt.Errorf("at least one field must be provided")
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if r.Phone != nil && strings.TrimSpace(*r.Phone) == "" {
		return fmt.Errorf("phone cannot be empty")
	}
	return nil
}

func (r *UpdateCustomerRequest) ToUpdate() customer.Update {
	return customer.Update{
		Name:    r.Name,
		Phone:   r.Phone,
		Email:   r.Email,
		Address: r.Address,
		Notes:   r.Notes,
	}
}

// CustomerResponse reports totalDebt as the customer's outstanding balance
// (sum of remaining amounts), already net of totalPaid.
type CustomerResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone"`
	Email     string      `json:"email,omitempty"`
	Address   string      `json:"address,omitempty"`
	Notes     string      `json:"notes,omitempty"`
	TotalDebt json.Number `json:"totalDebt"`
	TotalPaid json.Number `json:"totalPaid"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func NewCustomerResponse(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.CustomerID.String(),
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Address:   c.Address,
		Notes:     c.Notes,
		TotalDebt: moneyNumber(c.TotalDebt),
		TotalPaid: moneyNumber(c.TotalPaid),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type DeleteSettledDebtsResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}
