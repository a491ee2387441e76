package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"debt-ledger/internal/api/handler/dto"
	"debt-ledger/internal/domain/ledger"
	"debt-ledger/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type DebtHandler struct {
	service ledger.LedgerService
	logger  *slog.Logger
}

func NewDebtHandler(s ledger.LedgerService, l *slog.Logger) *DebtHandler {
	if s == nil {
		panic("ledger service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &DebtHandler{
		service: s,
		logger:  l.With("component", "DebtHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message, field := http.StatusInternalServerError, "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError
	var appErr *apperrors.AppError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "Authentication required."
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrAlreadyExists):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.As(err, &validationError):
		status, message, field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.As(err, &appErr):
		message = appErr.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

func getUUIDFromURL(r *http.Request, param string) (uuid.UUID, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%w: %s not found in URL path", apperrors.ErrInvalidArgument, param)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s format in URL path: %s", apperrors.ErrInvalidArgument, param, idStr)
	}
	return id, nil
}

// CreateDebt handles POST /debts
// @Summary Create a new debt
// @Description Records a new debt for an existing customer. The remaining balance starts equal to the total amount.
// @Tags Debts
// @Accept json
// @Produce json
// @Param request body dto.CreateDebtRequest true "Debt creation request"
// @Success 200 {object} dto.DebtResponse "Debt successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /debts [post]
// @Security BearerAuth
func (h *DebtHandler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received create debt request")

	var req dto.CreateDebtRequest
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

	rec, err := h.service.CreateDebt(r.Context(), req.ToInput())
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrInvalidArgument) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to create debt", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewDebtResponse(rec, time.Now().UTC())
	h.logger.InfoContext(r.Context(), "Debt created successfully", slog.String("debtID", resp.ID))
	respondJSON(w, http.StatusOK, resp)
}

// GetDebt handles GET /debts/{debtID}
// @Summary Retrieve debt details
// @Description Retrieves a debt with its derived status and paid amount.
// @Tags Debts
// @Produce json
// @Param debtID path string true "Debt ID (UUID)"
// @Success 200 {object} dto.DebtResponse "Debt details retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid debt ID format"
// @Failure 404 {object} dto.ErrorResponse "Debt not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /debts/{debtID} [get]
// @Security BearerAuth
func (h *DebtHandler) GetDebt(w http.ResponseWriter, r *http.Request) {
	debtID, err := getUUIDFromURL(r, "debtID")
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get debt ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	rec, err := h.service.GetDebt(r.Context(), debtID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to get debt", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewDebtResponse(rec, time.Now().UTC()))
}

// ListDebts handles GET /debts
// @Summary List debts
// @Description Lists debts, optionally filtered by derived status and/or customer. The status filter is evaluated against the current time.
// @Tags Debts
// @Produce json
// @Param status query string false "Filter by derived status (pending, partial, paid, overdue)"
// @Param customer_id query string false "Filter by customer ID (UUID)"
// @Success 200 {array} dto.DebtResponse "List of debts"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter value"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /debts [get]
// @Security BearerAuth
func (h *DebtHandler) ListDebts(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received list debts request")

	var filter ledger.DebtFilter

	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status, err := ledger.ParseDebtStatus(statusStr)
		if err != nil {
			h.logger.WarnContext(r.Context(), "Invalid status filter", slog.String("status", statusStr))
			respondError(w, err)
			return
		}
		filter.Status = &status
	}

	if customerIDStr := r.URL.Query().Get("customer_id"); customerIDStr != "" {
		customerID, err := uuid.Parse(customerIDStr)
		if err != nil {
			h.logger.WarnContext(r.Context(), "Invalid customer_id filter", slog.String("customer_id", customerIDStr))
			respondError(w, fmt.Errorf("%w: invalid customer_id format: %s", apperrors.ErrInvalidArgument, customerIDStr))
			return
		}
		filter.CustomerID = &customerID
	}

	debts, err := h.service.ListDebts(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list debts", slog.Any("error", err))
		respondError(w, err)
		return
	}

	now := time.Now().UTC()
	resp := make([]dto.DebtResponse, len(debts))
	for i, rec := range debts {
		resp[i] = dto.NewDebtResponse(rec, now)
	}

	h.logger.InfoContext(r.Context(), "Debts listed successfully", slog.Int("count", len(resp)))
	respondJSON(w, http.StatusOK, resp)
}

// ListOverdueDebts handles GET /debts/overdue
// @Summary List overdue debts
// @Description Lists every open debt whose due date has passed.
// @Tags Debts
// @Produce json
// @Success 200 {array} dto.DebtResponse "List of overdue debts"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /debts/overdue [get]
// @Security BearerAuth
func (h *DebtHandler) ListOverdueDebts(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received list overdue debts request")

	debts, err := h.service.ListOverdueDebts(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list overdue debts", slog.Any("error", err))
		respondError(w, err)
		return
	}

	now := time.Now().UTC()
	resp := make([]dto.DebtResponse, len(debts))
	for i, rec := range debts {
		resp[i] = dto.NewDebtResponse(rec, now)
	}

	respondJSON(w, http.StatusOK, resp)
}

// DeleteDebt handles DELETE /debts/{debtID}
// @Summary Delete a debt
// @Description Deletes a debt together with its payment history.
// @Tags Debts
// @Produce json
// @Param debtID path string true "Debt ID (UUID)"
// @Success 200 {object} map[string]string "Debt deleted"
// @Failure 400 {object} dto.ErrorResponse "Invalid debt ID format"
// @Failure 404 {object} dto.ErrorResponse "Debt not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /debts/{debtID} [delete]
// @Security BearerAuth
func (h *DebtHandler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	debtID, err := getUUIDFromURL(r, "debtID")
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get debt ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	if err := h.service.DeleteDebt(r.Context(), debtID); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to delete debt", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Debt deleted successfully", slog.String("debtID", debtID.String()))
	respondJSON(w, http.StatusOK, map[string]string{"message": "debt deleted"})
}
