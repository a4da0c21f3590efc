package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts lifecycle events. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	submissions   *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	issuance      *prometheus.CounterVec
	verifications *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lmscert_requests_submitted_total",
				Help: "Certificate requests submitted, by request type and outcome",
			},
			[]string{"type", "outcome"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lmscert_requests_rejected_total",
				Help: "Certificate requests rejected by an administrator",
			},
			[]string{"email"},
		),
		issuance: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lmscert_issuance_total",
				Help: "Issuance attempts by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lmscert_verifications_total",
				Help: "Public verification lookups by result",
			},
			[]string{"result"},
		),
	}

	m.Registry.MustRegister(m.submissions, m.rejections, m.issuance, m.verifications)
	return m
}

func (m *Metrics) submission(requestType, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(requestType, outcome).Inc()
}

func (m *Metrics) rejection(emailSent bool) {
	if m == nil {
		return
	}
	label := "sent"
	if !emailSent {
		label = "failed"
	}
	m.rejections.WithLabelValues(label).Inc()
}

func (m *Metrics) issue(action, outcome string) {
	if m == nil {
		return
	}
	m.issuance.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) verification(result string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(result).Inc()
}
