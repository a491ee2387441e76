package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	PaymentsTotal     *prometheus.CounterVec
	DebtsCreatedTotal prometheus.Counter
	DebtsSettledTotal prometheus.Counter
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "debt_ledger_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debt_ledger_payments_total",
				Help: "Total number of payment applications by outcome.",
			},
			[]string{"status"},
		),
		DebtsCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "debt_ledger_debts_created_total",
				Help: "Total number of debts created.",
			},
		),
		DebtsSettledTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "debt_ledger_debts_settled_total",
				Help: "Total number of debts fully paid off.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordPayment(status string) {
	Business.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordDebtCreated() {
	Business.DebtsCreatedTotal.Inc()
}

func RecordDebtSettled() {
	Business.DebtsSettledTotal.Inc()
}
