package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		commissionsTotal,
		commissionValueTotal,
		commissionsPaidTotal,
	)
}

var (
	commissionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "commissions_created_total",
			Help: "Commission ledger rows created.",
		},
	)

	commissionValueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commissions_value_total",
			Help: "Total commission value credited, in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)

	commissionsPaidTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "commissions_paid_total",
			Help: "Commissions settled by the payout batch.",
		},
	)
)

func IncCommission(currency string, value int64) {
	commissionsTotal.Inc()
	commissionValueTotal.WithLabelValues(norm(currency)).Add(float64(value))
}

func AddCommissionsPaid(n int) {
	commissionsPaidTotal.Add(float64(n))
}
