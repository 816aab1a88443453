package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Store related metrics
	StoreOperations *prometheus.CounterVec
	StoreLatency    *prometheus.HistogramVec
	StoreReloads    *prometheus.CounterVec

	// Workflow metrics
	Transitions      *prometheus.CounterVec
	IntakeDecisions  *prometheus.CounterVec
	PaymentReviews   *prometheus.CounterVec
	NewsletterSends  *prometheus.CounterVec
	AccountDeletions prometheus.Counter

	// HTTP metrics
	RequestTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates the application metrics. They are not registered; call Register.
func New(namespace string) *Metrics {
	return &Metrics{
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of entity store mutations",
		}, []string{"kind", "operation", "status"}),
		StoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "persist_duration_seconds",
			Help:      "Time spent writing a collection to the durable layer",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"kind"}),
		StoreReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "reloads_total",
			Help:      "Total number of reloads from the durable layer",
		}, []string{"status"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_transitions_total",
			Help:      "Appointment status transitions applied",
		}, []string{"from", "to"}),
		IntakeDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_decisions_total",
			Help:      "Pre-appointment decisions taken by administrators",
		}, []string{"action"}),
		PaymentReviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_reviews_total",
			Help:      "Payment proof reviews",
		}, []string{"decision"}),
		NewsletterSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "newsletter_sends_total",
			Help:      "Newsletter dispatch attempts",
		}, []string{"status"}),
		AccountDeletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_deletions_total",
			Help:      "Accounts removed with their pets, appointments and records",
		}),
		RequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.StoreOperations,
		m.StoreLatency,
		m.StoreReloads,
		m.Transitions,
		m.IntakeDecisions,
		m.PaymentReviews,
		m.NewsletterSends,
		m.AccountDeletions,
		m.RequestTotal,
		m.RequestDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
