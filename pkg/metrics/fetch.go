package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes recorded per attempt.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// FetchMetrics counts retry-chain attempts per panel resource.
type FetchMetrics struct {
	attempts  *prometheus.CounterVec
	exhausted *prometheus.CounterVec
}

// NewFetchMetrics registers the fetch metrics on the provided registerer.
func NewFetchMetrics(reg prometheus.Registerer) *FetchMetrics {
	if reg == nil {
		return &FetchMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fetch_attempts_total",
		Help: "Fetch attempts by resource and outcome.",
	}, []string{"resource", "outcome"})
	exhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fetch_exhausted_total",
		Help: "Fetch chains that gave up after the final retry.",
	}, []string{"resource"})
	reg.MustRegister(attempts, exhausted)
	return &FetchMetrics{attempts: attempts, exhausted: exhausted}
}

// IncAttempt records one attempt outcome for resource.
func (m *FetchMetrics) IncAttempt(resource, outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(resource), normalizeLabel(outcome)).Inc()
}

// IncExhausted records a chain that ran out of retries.
func (m *FetchMetrics) IncExhausted(resource string) {
	if m == nil || m.exhausted == nil {
		return
	}
	m.exhausted.WithLabelValues(normalizeLabel(resource)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
