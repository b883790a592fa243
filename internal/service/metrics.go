package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the ledger engine. A nil
// *Metrics is never passed around; tests build one against a throwaway
// registry.
type Metrics struct {
	PaymentsCreated     *prometheus.CounterVec
	PaymentsCompleted   *prometheus.CounterVec
	PaymentsExpired     prometheus.Counter
	ReconcileRuns       prometheus.Counter
	ReconcileChecked    prometheus.Counter
	ReconcileErrors     prometheus.Counter
	LedgerEntries       *prometheus.CounterVec
	EarningsDistributed *prometheus.CounterVec
	PayoutsRequested    prometheus.Counter
}

// NewMetrics builds and registers the instruments against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PaymentsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creatorledger",
			Name:      "payments_created_total",
			Help:      "Total pending payments created by provider and purpose.",
		}, []string{"provider", "purpose"}),
		PaymentsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creatorledger",
			Name:      "payments_completed_total",
			Help:      "Total payments completed by trigger.",
		}, []string{"trigger"}),
		PaymentsExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: "creatorledger",
			Name:      "payments_expired_total",
			Help:      "Total pending payments swept to EXPIRED.",
		}),
		ReconcileRuns: f.NewCounter(prometheus.CounterOpts{
			Namespace: "creatorledger",
			Name:      "reconcile_runs_total",
			Help:      "Total reconciliation poller runs.",
		}),
		ReconcileChecked: f.NewCounter(prometheus.CounterOpts{
			Namespace: "creatorledger",
			Name:      "reconcile_payments_checked_total",
			Help:      "Total pending payments checked against providers.",
		}),
		ReconcileErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "creatorledger",
			Name:      "reconcile_errors_total",
			Help:      "Total per-payment reconciliation errors.",
		}),
		LedgerEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creatorledger",
			Name:      "ledger_entries_total",
			Help:      "Total ledger entries appended by kind.",
		}, []string{"kind"}),
		EarningsDistributed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creatorledger",
			Name:      "earnings_distributed_total",
			Help:      "Total earning records created by beneficiary type.",
		}, []string{"beneficiary"}),
		PayoutsRequested: f.NewCounter(prometheus.CounterOpts{
			Namespace: "creatorledger",
			Name:      "payouts_requested_total",
			Help:      "Total payout requests accepted.",
		}),
	}
}
