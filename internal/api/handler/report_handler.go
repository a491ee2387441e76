package handler

import (
	"log/slog"
	"net/http"

	"debt-ledger/internal/api/handler/dto"
	"debt-ledger/internal/domain/ledger"
)

type ReportHandler struct {
	service ledger.LedgerService
	logger  *slog.Logger
}

func NewReportHandler(s ledger.LedgerService, l *slog.Logger) *ReportHandler {
	if s == nil {
		panic("ledger service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &ReportHandler{
		service: s,
		logger:  l.With("component", "ReportHandler"),
	}
}

// DashboardStats handles GET /dashboard/stats
// @Summary Dashboard statistics
// @Description Returns ledger-wide totals, the overdue debt count, and the most recent payments, all read in one transaction.
// @Tags Reports
// @Produce json
// @Success 200 {object} dto.DashboardStatsResponse "Dashboard statistics"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /dashboard/stats [get]
// @Security BearerAuth
func (h *ReportHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received dashboard stats request")

	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to compute dashboard stats", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewDashboardStatsResponse(stats))
}

// Export handles GET /reports/export
// @Summary Export the full ledger
// @Description Returns every customer, debt, and payment from a single repeatable-read snapshot. Debt statuses are classified against the export time.
// @Tags Reports
// @Produce json
// @Success 200 {object} dto.ExportResponse "Full ledger snapshot"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /reports/export [get]
// @Security BearerAuth
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received export request")

	snapshot, err := h.service.ExportSnapshot(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to export snapshot", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Ledger exported",
		slog.Int("customers", len(snapshot.Customers)),
		slog.Int("debts", len(snapshot.Debts)),
		slog.Int("payments", len(snapshot.Payments)))
	respondJSON(w, http.StatusOK, dto.NewExportResponse(snapshot))
}
