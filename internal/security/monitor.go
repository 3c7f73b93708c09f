// Package security keeps a bounded, append-only log of security events and
// runs simple threshold-based anomaly detection over metric snapshots.
package security

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity ranks how urgently an event needs attention.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Event types emitted by the wallet core.
const (
	EventRateLimitExceeded      = "rate_limit_exceeded"
	EventInvalidInput           = "invalid_input"
	EventCryptoFailure          = "crypto_failure"
	EventInitializationFailed   = "initialization_failed"
	EventCredentialIssued       = "credential_issued"
	EventVerificationFailed     = "verification_failed"
	EventDisclosureCreated      = "disclosure_created"
	EventCallbackDeliveryFailed = "callback_delivery_failed"
	EventAnomalyDetected        = "anomaly_detected"
)

// Event is the observability record. Details carries free-form context; no
// schema is required beyond type/severity/details.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Severity  Severity       `json:"severity"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sink receives events best-effort: no blocking, no retry.
type Sink interface {
	Emit(event Event)
}

// SlogSink writes events to structured logs.
type SlogSink struct {
	Logger *slog.Logger
}

func (s SlogSink) Emit(event Event) {
	s.Logger.Warn("security event",
		"event_id", event.ID,
		"event_type", event.Type,
		"severity", string(event.Severity),
		"details", event.Details,
	)
}

// Monitor is the bounded event log. Oldest events are dropped FIFO on
// overflow. Instances are dependency-injected rather than process globals so
// tests can run isolated copies.
type Monitor struct {
	mu       sync.Mutex
	events   []Event
	head     int
	tail     int
	count    int
	capacity int
	dropped  int64

	sinks []Sink
	now   func() time.Time
}

const defaultCapacity = 1000

type Option func(*Monitor)

func WithSink(sink Sink) Option {
	return func(m *Monitor) { m.sinks = append(m.sinks, sink) }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func NewMonitor(capacity int, opts ...Option) *Monitor {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	m := &Monitor{
		events:   make([]Event, capacity),
		capacity: capacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LogEvent appends an event, stamping id and timestamp when absent, and fans
// it out to the sinks.
func (m *Monitor) LogEvent(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}

	m.mu.Lock()
	if m.count >= m.capacity {
		m.tail = (m.tail + 1) % m.capacity
		m.count--
		m.dropped++
	}
	m.events[m.head] = event
	m.head = (m.head + 1) % m.capacity
	m.count++
	m.mu.Unlock()

	for _, sink := range m.sinks {
		sink.Emit(event)
	}
}

// Events returns the retained events, oldest first.
func (m *Monitor) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, 0, m.count)
	for i := 0; i < m.count; i++ {
		out = append(out, m.events[(m.tail+i)%m.capacity])
	}
	return out
}

// Dropped returns how many events were evicted due to overflow.
func (m *Monitor) Dropped() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Snapshot is a point-in-time metrics view for anomaly detection.
type Snapshot struct {
	Requests         int
	Errors           int
	RateLimitDenials int
}

// Anomaly thresholds. Tunables, not correctness requirements.
const (
	errorRateThreshold = 0.10
	denialThreshold    = 5
)

// DetectAnomalies classifies a metrics snapshot. It is pure and
// deterministic: the monitor's log is not consulted and no events are
// recorded; callers log the returned events if they want them retained.
func DetectAnomalies(s Snapshot) []Event {
	var anomalies []Event
	if s.Requests > 0 {
		rate := float64(s.Errors) / float64(s.Requests)
		if rate > errorRateThreshold {
			anomalies = append(anomalies, Event{
				Type:     EventAnomalyDetected,
				Severity: SeverityHigh,
				Details: map[string]any{
					"rule":       "error_rate",
					"error_rate": rate,
					"requests":   s.Requests,
					"errors":     s.Errors,
				},
			})
		}
	}
	if s.RateLimitDenials >= denialThreshold {
		anomalies = append(anomalies, Event{
			Type:     EventAnomalyDetected,
			Severity: SeverityMedium,
			Details: map[string]any{
				"rule":    "rate_limit_denials",
				"denials": s.RateLimitDenials,
			},
		})
	}
	return anomalies
}
