// Package metrics defines the Prometheus collectors exported by the gateway.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "sentinel"

// Metrics groups the gateway's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	authOutcomes    *prometheus.CounterVec
	gatewayVerdicts *prometheus.CounterVec
	signOutcomes    *prometheus.CounterVec
	simulationTime  prometheus.Histogram
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_outcomes_total",
			Help:      "Challenge verifications by outcome.",
		}, []string{"outcome"}),
		gatewayVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_verdicts_total",
			Help:      "Transaction security gateway verdicts.",
		}, []string{"verdict"}),
		signOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_outcomes_total",
			Help:      "Signing requests by final state.",
		}, []string{"outcome"}),
		simulationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulation_duration_seconds",
			Help:      "Latency of ledger dry runs.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.authOutcomes, m.gatewayVerdicts, m.signOutcomes, m.simulationTime)
	return m
}

func (m *Metrics) AuthOutcome(outcome string) {
	if m == nil {
		return
	}
	m.authOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GatewayVerdict(verdict string) {
	if m == nil {
		return
	}
	m.gatewayVerdicts.WithLabelValues(verdict).Inc()
}

func (m *Metrics) SignOutcome(outcome string) {
	if m == nil {
		return
	}
	m.signOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSimulation(seconds float64) {
	if m == nil {
		return
	}
	m.simulationTime.Observe(seconds)
}
