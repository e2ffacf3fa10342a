package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	BookingsCreated     *prometheus.CounterVec
	StatusTransitions   *prometheus.CounterVec
	PaymentsRecorded    *prometheus.CounterVec
	PaymentAmount       prometheus.Counter
	NotifyFailures      prometheus.Counter
	DBTxDuration        prometheus.Histogram
	OutboxLag           prometheus.Gauge
	RabbitPublishErrors prometheus.Counter
	RateLimitExceeded   prometheus.Counter
}

// NewMetrics registers the service metrics on reg. Pass
// prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_requests_total",
				Help: "Total number of requests",
			},
			[]string{"route", "code", "method"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "studio_request_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		BookingsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_bookings_created_total",
				Help: "Bookings created, by source",
			},
			[]string{"source"},
		),
		StatusTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_booking_status_transitions_total",
				Help: "Booking status changes, by target status",
			},
			[]string{"to"},
		),
		PaymentsRecorded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_payments_recorded_total",
				Help: "Payments appended to booking ledgers, by type",
			},
			[]string{"type"},
		),
		PaymentAmount: f.NewCounter(
			prometheus.CounterOpts{
				Name: "studio_payment_amount_total",
				Help: "Sum of recorded payment amounts in currency units",
			},
		),
		NotifyFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "studio_notify_failures_total",
				Help: "Booking notifications that could not be handed off",
			},
		),
		DBTxDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "studio_db_tx_seconds",
				Help:    "Duration of DB transactions",
				Buckets: prometheus.DefBuckets,
			},
		),
		OutboxLag: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "studio_outbox_lag_seconds",
				Help: "Age of the oldest outbox record relayed in the last batch",
			},
		),
		RabbitPublishErrors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "studio_rabbit_publish_errors_total",
				Help: "Total failed rabbit publishes",
			},
		),
		RateLimitExceeded: f.NewCounter(
			prometheus.CounterOpts{
				Name: "studio_rate_limit_exceeded_total",
				Help: "Total rate limit exceeded",
			},
		),
	}
}
