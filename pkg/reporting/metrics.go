package reporting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/ledger"
)

// Metrics exposes the latest whole-ledger summary as gauges.
type Metrics struct {
	amounts       *prometheus.GaugeVec
	customers     prometheus.Gauge
	reports       prometheus.Counter
	publishErrors prometheus.Counter
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		amounts: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "khata_amount",
				Help: "Ledger totals as of the last report, by status and component",
			},
			[]string{"status", "component"},
		),
		customers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "khata_customers",
			Help: "Number of customers in the last reported snapshot",
		}),
		reports: factory.NewCounter(prometheus.CounterOpts{
			Name: "khata_reports_total",
			Help: "Total number of snapshots summarized",
		}),
		publishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "khata_report_publish_errors_total",
			Help: "Total number of failed summary publishes",
		}),
	}
}

func (m *Metrics) observe(s ledger.Summary, customers int) {
	m.amounts.WithLabelValues("unpaid", "principal").Set(s.UnpaidPrincipal.InexactFloat64())
	m.amounts.WithLabelValues("unpaid", "interest").Set(s.UnpaidInterest.InexactFloat64())
	m.amounts.WithLabelValues("paid", "principal").Set(s.PaidPrincipal.InexactFloat64())
	m.amounts.WithLabelValues("paid", "interest").Set(s.PaidInterest.InexactFloat64())
	m.customers.Set(float64(customers))
	m.reports.Inc()
}
