package dto

import (
	"encoding/json"
	"time"

	"debt-ledger/internal/domain/ledger"
)

type DashboardStatsResponse struct {
	TotalCustomers int64             `json:"totalCustomers"`
	TotalDebts     json.Number       `json:"totalDebts"`
	TotalPaid      json.Number       `json:"totalPaid"`
	TotalPending   json.Number       `json:"totalPending"`
	OverdueDebts   int64             `json:"overdueDebts"`
	RecentPayments []PaymentResponse `json:"recentPayments"`
}

func NewDashboardStatsResponse(stats *ledger.DashboardStats) DashboardStatsResponse {
	recent := make([]PaymentResponse, len(stats.RecentPayments))
	for i, rec := range stats.RecentPayments {
		recent[i] = NewPaymentRecordResponse(rec)
	}
	return DashboardStatsResponse{
		TotalCustomers: stats.TotalCustomers,
		TotalDebts:     moneyNumber(stats.TotalDebts),
		TotalPaid:      moneyNumber(stats.TotalPaid),
		TotalPending:   moneyNumber(stats.TotalPending),
		OverdueDebts:   stats.OverdueDebts,
		RecentPayments: recent,
	}
}

type ExportResponse struct {
	ExportedAt time.Time          `json:"exportedAt"`
	Customers  []CustomerResponse `json:"customers"`
	Debts      []DebtResponse     `json:"debts"`
	Payments   []PaymentResponse  `json:"payments"`
}

func NewExportResponse(snapshot *ledger.Snapshot) ExportResponse {
	customers := make([]CustomerResponse, len(snapshot.Customers))
	for i, c := range snapshot.Customers {
		customers[i] = NewCustomerResponse(c)
	}
	debts := make([]DebtResponse, len(snapshot.Debts))
	for i, d := range snapshot.Debts {
		debts[i] = NewDebtResponse(d, snapshot.ExportedAt)
	}
	payments := make([]PaymentResponse, len(snapshot.Payments))
	for i, p := range snapshot.Payments {
		payments[i] = NewPaymentResponse(p)
	}
	return ExportResponse{
		ExportedAt: snapshot.ExportedAt,
		Customers:  customers,
		Debts:      debts,
		Payments:   payments,
	}
}
