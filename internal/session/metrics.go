package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks session lifecycle events. A nil *Metrics records nothing.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Logins      *prometheus.CounterVec
	Refreshes   *prometheus.CounterVec
	Teardowns   *prometheus.CounterVec
}

// NewMetrics registers the session metrics with reg. Use a fresh registry per
// Manager in tests; prometheus.DefaultRegisterer panics on duplicates.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_session_transitions_total",
			Help: "Session state transitions by target state",
		}, []string{"state"}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_session_logins_total",
			Help: "Login and two-factor completion attempts by result",
		}, []string{"result"}),
		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_session_refresh_total",
			Help: "Session refreshes by result",
		}, []string{"result"}),
		Teardowns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_session_teardowns_total",
			Help: "Session teardowns by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) transition(to State) {
	if m != nil {
		m.Transitions.WithLabelValues(string(to)).Inc()
	}
}

func (m *Metrics) login(result string) {
	if m != nil {
		m.Logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) refresh(result string) {
	if m != nil {
		m.Refreshes.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) teardown(reason string) {
	if m != nil {
		m.Teardowns.WithLabelValues(reason).Inc()
	}
}
