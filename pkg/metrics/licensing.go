package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// LicensingMetrics records issuance, activation, and gate outcomes.
type LicensingMetrics struct {
	issuedKeys  *prometheus.CounterVec
	activations *prometheus.CounterVec
	gateResults *prometheus.CounterVec
}

// NewLicensingMetrics registers the licensing metrics on the provided registerer.
func NewLicensingMetrics(reg prometheus.Registerer) *LicensingMetrics {
	if reg == nil {
		return &LicensingMetrics{}
	}
	issued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "license_keys_issued_total",
		Help: "License keys issued, by plan and flow (stock or grant).",
	}, []string{"plan", "flow"})
	activations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "license_activations_total",
		Help: "License activation attempts, by result.",
	}, []string{"result"})
	gate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_gate_evaluations_total",
		Help: "Subscription gate evaluations, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(issued, activations, gate)
	return &LicensingMetrics{
		issuedKeys:  issued,
		activations: activations,
		gateResults: gate,
	}
}

// AddIssued records count keys issued for the plan through the given flow.
func (m *LicensingMetrics) AddIssued(plan, flow string, count int) {
	if m == nil || m.issuedKeys == nil {
		return
	}
	m.issuedKeys.WithLabelValues(normalizeLabel(plan), normalizeLabel(flow)).Add(float64(count))
}

// IncActivation records one activation attempt with the given result label.
func (m *LicensingMetrics) IncActivation(result string) {
	if m == nil || m.activations == nil {
		return
	}
	m.activations.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncGate records one gate evaluation outcome (valid, expired, no_subscription,
// fail_open).
func (m *LicensingMetrics) IncGate(outcome string) {
	if m == nil || m.gateResults == nil {
		return
	}
	m.gateResults.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
