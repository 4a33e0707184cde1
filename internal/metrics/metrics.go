// Package metrics exposes chat turn and session counters for Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MikeSquared-Agency/opsdesk/internal/chat"
)

const namespace = "opsdesk"

// Chat records turn outcomes, notifications and open sessions. It satisfies
// chat.Notifier and chat.TurnObserver.
type Chat struct {
	turns         *prometheus.CounterVec
	notifications *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	sessions      prometheus.Gauge
}

func NewChat(reg prometheus.Registerer) *Chat {
	m := &Chat{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Resolved chat turns by outcome and failure kind.",
		}, []string{"outcome", "failure_kind"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "notifications_total",
			Help:      "User-facing notifications raised by chat sessions.",
		}, []string{"kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "webhook_latency_seconds",
			Help:      "Time from submission to webhook resolution.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "open_sessions",
			Help:      "Chat sessions currently held by the registry.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.turns, m.notifications, m.latency, m.sessions)
	}
	return m
}

func (m *Chat) Notify(n chat.Notification) {
	m.notifications.WithLabelValues(string(n.Kind)).Inc()
}

func (m *Chat) TurnCompleted(evt chat.TurnEvent) {
	kind := evt.FailureKind
	if kind == "" {
		kind = "none"
	}
	m.turns.WithLabelValues(evt.Outcome, kind).Inc()
	m.latency.WithLabelValues(evt.Outcome).Observe(evt.Latency.Seconds())
}

// SetOpenSessions reports the registry size.
func (m *Chat) SetOpenSessions(n int) {
	m.sessions.Set(float64(n))
}
