package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cityfix"

// Metrics собирает счётчики жизненного цикла обращений и рассылки событий.
type Metrics struct {
	IssuesCreated      prometheus.Counter
	IssuesDeleted      prometheus.Counter
	Transitions        *prometheus.CounterVec
	PointsAwarded      prometheus.Counter
	EventsPublished    *prometheus.CounterVec
	ObserversConnected prometheus.Gauge
	ObserversDropped   prometheus.Counter
}

// New регистрирует метрики в reg. В тестах передавайте prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IssuesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_created_total",
			Help:      "Number of issues reported.",
		}),
		IssuesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_deleted_total",
			Help:      "Number of issues deleted by administrators.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Committed status transitions by target status.",
		}, []string{"status"}),
		PointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Points granted to reporters by the ledger.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Lifecycle events handed to the broadcaster.",
		}, []string{"type"}),
		ObserversConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observers_connected",
			Help:      "Currently connected realtime observers.",
		}),
		ObserversDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observers_dropped_total",
			Help:      "Observers disconnected because their send queue was full.",
		}),
	}

	reg.MustRegister(
		m.IssuesCreated,
		m.IssuesDeleted,
		m.Transitions,
		m.PointsAwarded,
		m.EventsPublished,
		m.ObserversConnected,
		m.ObserversDropped,
	)
	return m
}
