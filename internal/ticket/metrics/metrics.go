package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ticket module.
// Tracks issuance volume, validation outcomes and critical path durations.
type Metrics struct {
	TicketsIssued    prometheus.Counter
	CheckinOutcomes  *prometheus.CounterVec
	IssueDuration    prometheus.Histogram
	ValidateDuration prometheus.Histogram
}

// New creates a new Metrics instance with all ticket module metrics registered.
func New() *Metrics {
	return &Metrics{
		TicketsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_tickets_issued_total",
			Help: "Total number of tickets issued with a signed credential",
		}),
		CheckinOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_checkin_outcomes_total",
			Help: "Check-in validation results partitioned by outcome and reason",
		}, []string{"outcome", "reason"}),
		IssueDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatekeeper_issue_duration_seconds",
			Help:    "Duration of Issue operations (registration path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ValidateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatekeeper_validate_duration_seconds",
			Help:    "Duration of Validate operations (gate scan critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementTicketsIssued records a successful issuance.
func (m *Metrics) IncrementTicketsIssued() {
	m.TicketsIssued.Inc()
}

// IncrementCheckinOutcome records one validation result.
func (m *Metrics) IncrementCheckinOutcome(outcome, reason string) {
	m.CheckinOutcomes.WithLabelValues(outcome, reason).Inc()
}

// ObserveIssue records the duration of an Issue operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveIssue(start time.Time) {
	m.IssueDuration.Observe(time.Since(start).Seconds())
}

// ObserveValidate records the duration of a Validate operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveValidate(start time.Time) {
	m.ValidateDuration.Observe(time.Since(start).Seconds())
}
