package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"debt-ledger/internal/api/handler/dto"
	"debt-ledger/internal/domain/ledger"
	"debt-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
)

type PaymentHandler struct {
	service ledger.LedgerService
	logger  *slog.Logger
}

func NewPaymentHandler(s ledger.LedgerService, l *slog.Logger) *PaymentHandler {
	if s == nil {
		panic("ledger service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &PaymentHandler{
		service: s,
		logger:  l.With("component", "PaymentHandler"),
	}
}

// ApplyPayment handles POST /payments
// @Summary Record a payment
// @Description Records a payment against a debt and decrements its remaining balance atomically. The payment may not exceed the remaining balance.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body dto.ApplyPaymentRequest true "Payment request"
// @Success 200 {object} dto.ApplyPaymentResponse "Payment recorded with the updated debt"
// @Failure 400 {object} dto.ErrorResponse "Invalid payload, settled debt, or amount exceeds remaining balance"
// @Failure 404 {object} dto.ErrorResponse "Debt not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /payments [post]
// @Security BearerAuth
func (h *PaymentHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received apply payment request")

	var req dto.ApplyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(r.Context(), "Request validation failed", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	payment, debt, err := h.service.ApplyPayment(r.Context(), req.ToInput())
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrInvalidArgument) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to apply payment", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.ApplyPaymentResponse{
		Payment: dto.NewPaymentResponse(payment),
		Debt:    dto.NewDebtResponse(&ledger.DebtRecord{Debt: *debt}, time.Now().UTC()),
	}
	h.logger.InfoContext(r.Context(), "Payment recorded successfully",
		slog.String("paymentID", resp.Payment.ID), slog.String("debtID", resp.Debt.ID))
	respondJSON(w, http.StatusOK, resp)
}

// ListPayments handles GET /payments
// @Summary List payments
// @Description Lists payments newest first, optionally filtered by customer.
// @Tags Payments
// @Produce json
// @Param customer_id query string false "Filter by customer ID (UUID)"
// @Success 200 {array} dto.PaymentResponse "List of payments"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter value"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /payments [get]
// @Security BearerAuth
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received list payments request")

	var customerID *uuid.UUID
	if customerIDStr := r.URL.Query().Get("customer_id"); customerIDStr != "" {
		parsed, err := uuid.Parse(customerIDStr)
		if err != nil {
			h.logger.WarnContext(r.Context(), "Invalid customer_id filter", slog.String("customer_id", customerIDStr))
			respondError(w, fmt.Errorf("%w: invalid customer_id format: %s", apperrors.ErrInvalidArgument, customerIDStr))
			return
		}
		customerID = &parsed
	}

	payments, err := h.service.ListPayments(r.Context(), customerID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list payments", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.PaymentResponse, len(payments))
	for i, rec := range payments {
		resp[i] = dto.NewPaymentRecordResponse(rec)
	}

	h.logger.InfoContext(r.Context(), "Payments listed successfully", slog.Int("count", len(resp)))
	respondJSON(w, http.StatusOK, resp)
}
