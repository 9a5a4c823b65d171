package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersFinalizedTotal counts finalized orders by payment method.
	OrdersFinalizedTotal *prometheus.CounterVec
	// OrderValueTotal accumulates finalized order totals in minor units.
	OrderValueTotal prometheus.Counter
	// CouponAttemptsTotal counts coupon applications by outcome.
	CouponAttemptsTotal *prometheus.CounterVec
	// PrintJobsTotal counts print job outcomes by ticket kind.
	PrintJobsTotal *prometheus.CounterVec
	// PrintAttemptLatency records printer bridge latency in milliseconds.
	PrintAttemptLatency *prometheus.HistogramVec
	// PrintDLQTotal counts print jobs moved to the dead-letter queue.
	PrintDLQTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers billing-specific
// Prometheus collectors. Safe to call from both the API and the worker.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersFinalizedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_finalized_total",
			Help:      "Count of finalized orders by payment method.",
		}, []string{"payment_method"})
		OrderValueTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_value_minor_units_total",
			Help:      "Sum of finalized order totals in minor currency units.",
		})
		CouponAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_attempts_total",
			Help:      "Count of coupon application attempts by outcome.",
		}, []string{"result"})
		PrintJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "print_jobs_total",
			Help:      "Count of print job outcomes by ticket kind.",
		}, []string{"kind", "result"})
		PrintAttemptLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "print_attempt_duration_ms",
			Help:      "Latency of printer bridge delivery attempts in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"result"})
		PrintDLQTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "print_dlq_total",
			Help:      "Number of print jobs moved to the dead-letter queue.",
		})

		registerOrReuse(reg, OrdersFinalizedTotal, func(c prometheus.Collector) {
			if v, ok := c.(*prometheus.CounterVec); ok {
				OrdersFinalizedTotal = v
			}
		})
		registerOrReuse(reg, OrderValueTotal, func(c prometheus.Collector) {
			if v, ok := c.(prometheus.Counter); ok {
				OrderValueTotal = v
			}
		})
		registerOrReuse(reg, CouponAttemptsTotal, func(c prometheus.Collector) {
			if v, ok := c.(*prometheus.CounterVec); ok {
				CouponAttemptsTotal = v
			}
		})
		registerOrReuse(reg, PrintJobsTotal, func(c prometheus.Collector) {
			if v, ok := c.(*prometheus.CounterVec); ok {
				PrintJobsTotal = v
			}
		})
		registerOrReuse(reg, PrintAttemptLatency, func(c prometheus.Collector) {
			if v, ok := c.(*prometheus.HistogramVec); ok {
				PrintAttemptLatency = v
			}
		})
		registerOrReuse(reg, PrintDLQTotal, func(c prometheus.Collector) {
			if v, ok := c.(prometheus.Counter); ok {
				PrintDLQTotal = v
			}
		})
	})
}
