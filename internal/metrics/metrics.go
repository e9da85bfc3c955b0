package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the process counters. Construct with New and pass
// prometheus.DefaultRegisterer in main; a nil registerer keeps the
// collectors unregistered, which tests rely on.
type Metrics struct {
	MessagesSent         *prometheus.CounterVec
	MessagesDeleted      *prometheus.CounterVec
	WSConnections        prometheus.Gauge
	EventsBroadcast      prometheus.Counter
	NotificationsCreated prometheus.Counter
	PushSent             prometheus.Counter
	PushFailed           prometheus.Counter
	AssistantReplies     *prometheus.CounterVec
	TasksEnqueued        prometheus.Counter
	TasksDropped         prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aura_messages_sent_total",
			Help: "Messages persisted, by conversation kind.",
		}, []string{"kind"}),
		MessagesDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aura_messages_deleted_total",
			Help: "Message deletions, by scope (me or everyone).",
		}, []string{"scope"}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aura_ws_connections",
			Help: "Currently registered websocket clients.",
		}),
		EventsBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aura_ws_events_broadcast_total",
			Help: "Events handed to the hub for room delivery.",
		}),
		NotificationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aura_notifications_created_total",
			Help: "Notification records written to the store.",
		}),
		PushSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aura_push_sent_total",
			Help: "Push tickets accepted by the provider.",
		}),
		PushFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aura_push_failed_total",
			Help: "Push attempts that exhausted retries.",
		}),
		AssistantReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aura_assistant_replies_total",
			Help: "Assistant replies stored, by outcome (ok or fallback).",
		}, []string{"outcome"}),
		TasksEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aura_tasks_enqueued_total",
			Help: "Background tasks accepted by the dispatcher.",
		}),
		TasksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aura_tasks_dropped_total",
			Help: "Background tasks rejected because the queue was full.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.MessagesSent,
			m.MessagesDeleted,
			m.WSConnections,
			m.EventsBroadcast,
			m.NotificationsCreated,
			m.PushSent,
			m.PushFailed,
			m.AssistantReplies,
			m.TasksEnqueued,
			m.TasksDropped,
		)
	}

	return m
}
