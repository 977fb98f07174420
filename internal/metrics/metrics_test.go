package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AuthOutcome("success")
	m.AuthOutcome("success")
	m.GatewayVerdict("unauthorized_program")
	m.SignOutcome("signed")
	m.ObserveSimulation(0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authOutcomes.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayVerdicts.WithLabelValues("unauthorized_program")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.signOutcomes.WithLabelValues("signed")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AuthOutcome("x")
		m.GatewayVerdict("x")
		m.SignOutcome("x")
		m.ObserveSimulation(1)
	})
}
