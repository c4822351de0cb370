package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes.
const (
	CheckoutSuccess         = "success"
	CheckoutTimeout         = "timeout"
	CheckoutInvalidForm     = "invalid_form"
	CheckoutInvalidCart     = "invalid_cart"
	CheckoutInitiateFailure = "initiate_failure"
	CheckoutPersistFailure  = "persist_failure"
	// CheckoutDependencyFailure counts attempts stopped by an unreachable
	// upstream before any charge was started.
	CheckoutDependencyFailure = "dependency_failure"
)

// CheckoutMetrics tracks the payment confirmation state machine.
type CheckoutMetrics struct {
	outcomes   *prometheus.CounterVec
	polls      prometheus.Counter
	settlement prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Checkout attempts by terminal outcome.",
	}, []string{"outcome"})
	polls := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_status_polls_total",
		Help: "Payment status polls issued.",
	})
	settlement := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_settlement_seconds",
		Help:    "Time from payment initiation to observed settlement.",
		Buckets: []float64{5, 10, 20, 30, 45, 60, 90, 120},
	})
	reg.MustRegister(outcomes, polls, settlement)
	return &CheckoutMetrics{outcomes: outcomes, polls: polls, settlement: settlement}
}

func (m *CheckoutMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CheckoutMetrics) IncPoll() {
	if m == nil || m.polls == nil {
		return
	}
	m.polls.Inc()
}

func (m *CheckoutMetrics) ObserveSettlement(d time.Duration) {
	if m == nil || m.settlement == nil {
		return
	}
	m.settlement.Observe(d.Seconds())
}
