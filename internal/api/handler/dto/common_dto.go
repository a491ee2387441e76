package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// moneyNumber renders a decimal as an unquoted JSON number with exactly two
// decimal places.
func moneyNumber(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
