package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"debt-ledger/internal/api/handler/dto"
	"debt-ledger/internal/domain/customer"
	"debt-ledger/internal/domain/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestReportHandlerDashboardStats(t *testing.T) {
	mockService := new(MockLedgerService)
	handler := NewReportHandler(mockService, logger)

	t.Run("returns aggregated stats", func(t *testing.T) {
		stats := &ledger.DashboardStats{
			TotalCustomers: 12,
			TotalDebts:     decimal.NewFromInt(4200),
			TotalPaid:      decimal.NewFromInt(1700),
			TotalPending:   decimal.NewFromInt(2500),
			OverdueDebts:   3,
			RecentPayments: []*ledger.PaymentRecord{},
		}
		mockService.On("DashboardStats", mock.Anything).Return(stats, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)
		w := httptest.NewRecorder()

		handler.DashboardStats(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.DashboardStatsResponse
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, int64(12), resp.TotalCustomers)
		assert.Equal(t, json.Number("2500.00"), resp.TotalPending)
		assert.Equal(t, int64(3), resp.OverdueDebts)
		assert.NotNil(t, resp.RecentPayments)
		mockService.AssertExpectations(t)
	})

	t.Run("returns internal server error on failure", func(t *testing.T) {
		mockService.On("DashboardStats", mock.Anything).Return(nil, errors.New("db down")).Once()

		req := httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)
		w := httptest.NewRecorder()

		handler.DashboardStats(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestReportHandlerExport(t *testing.T) {
	mockService := new(MockLedgerService)
	handler := NewReportHandler(mockService, logger)

	t.Run("returns full snapshot", func(t *testing.T) {
		exportedAt := time.Now().UTC()
		snapshot := &ledger.Snapshot{
			Customers:  []*customer.Customer{newCustomer()},
			Debts:      []*ledger.DebtRecord{newDebtRecord(newCustomer().CustomerID)},
			Payments:   []*ledger.Payment{},
			ExportedAt: exportedAt,
		}
		mockService.On("ExportSnapshot", mock.Anything).Return(snapshot, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/reports/export", nil)
		w := httptest.NewRecorder()

		handler.Export(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.ExportResponse
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Len(t, resp.Customers, 1)
		assert.Len(t, resp.Debts, 1)
		assert.NotNil(t, resp.Payments)
		assert.WithinDuration(t, exportedAt, resp.ExportedAt, time.Second)
		mockService.AssertExpectations(t)
	})

	t.Run("returns internal server error on failure", func(t *testing.T) {
		mockService.On("ExportSnapshot", mock.Anything).Return(nil, errors.New("snapshot failed")).Once()

		req := httptest.NewRequest(http.MethodGet, "/reports/export", nil)
		w := httptest.NewRecorder()

		handler.Export(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		mockService.AssertExpectations(t)
	})
}
