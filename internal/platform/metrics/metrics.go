// Package metrics registers the service's Prometheus instruments. Methods
// are nil-safe so components can run without metrics in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CredentialsIssued  prometheus.Counter
	Verifications      *prometheus.CounterVec
	DisclosuresCreated prometheus.Counter
	RequestsReceived   prometheus.Counter
	RateLimitDenials   prometheus.Counter
	SecurityEvents     *prometheus.CounterVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idwallet_credentials_issued_total",
			Help: "Total number of verifiable credentials issued.",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idwallet_credential_verifications_total",
			Help: "Credential verification attempts by result.",
		}, []string{"result"}),
		DisclosuresCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idwallet_disclosures_created_total",
			Help: "Total number of selective disclosures created.",
		}),
		RequestsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idwallet_credential_requests_received_total",
			Help: "Total number of inbound credential requests accepted.",
		}),
		RateLimitDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idwallet_rate_limit_denials_total",
			Help: "Operations denied by the rate limiter.",
		}),
		SecurityEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idwallet_security_events_total",
			Help: "Security events logged, by severity.",
		}, []string{"severity"}),
	}
}

func (m *Metrics) IncCredentialsIssued() {
	if m != nil {
		m.CredentialsIssued.Inc()
	}
}

func (m *Metrics) IncVerification(valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.Verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) IncDisclosuresCreated() {
	if m != nil {
		m.DisclosuresCreated.Inc()
	}
}

func (m *Metrics) IncRequestsReceived() {
	if m != nil {
		m.RequestsReceived.Inc()
	}
}

func (m *Metrics) IncRateLimitDenials() {
	if m != nil {
		m.RateLimitDenials.Inc()
	}
}

func (m *Metrics) IncSecurityEvents(severity string) {
	if m != nil {
		m.SecurityEvents.WithLabelValues(severity).Inc()
	}
}
