package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the prometheus collectors of the chat server.
// A nil *Metrics is valid and records nothing, so components can run without it.
type Metrics struct {
	// Connections tracks open sockets by handshake state (pending|authenticated).
	Connections *prometheus.GaugeVec

	// MessagesRelayed counts persisted and broadcast messages by detected language.
	MessagesRelayed *prometheus.CounterVec

	// MessagesRejected counts rejected envelopes by error code.
	MessagesRejected *prometheus.CounterVec

	// Deliveries counts broadcast deliveries by outcome (ok|failed).
	Deliveries *prometheus.CounterVec

	// PersistDuration measures the store round trip in seconds.
	PersistDuration prometheus.Histogram

	// ObservationsDropped counts messages an observer queue could not accept.
	ObservationsDropped *prometheus.CounterVec

	// QueueLength samples the fill level of the observer queues.
	QueueLength   *prometheus.GaugeVec
	QueueCapacity *prometheus.GaugeVec

	ProcessCPU prometheus.Gauge
	ProcessRSS prometheus.Gauge
}

// NewMetrics registers every collector on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Connections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chat_connections",
			Help: "Open chat connections by handshake state.",
		}, []string{"state"}),
		MessagesRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_relayed_total",
			Help: "Messages persisted and broadcast.",
		}, []string{"lang"}),
		MessagesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_rejected_total",
			Help: "Inbound envelopes rejected, by error code.",
		}, []string{"code"}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_deliveries_total",
			Help: "Broadcast deliveries to connections, by outcome.",
		}, []string{"outcome"}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chat_persist_duration_seconds",
			Help:    "Message store round trip latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		ObservationsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_observations_dropped_total",
			Help: "Relayed messages an observer could not queue.",
		}, []string{"observer"}),
		QueueLength: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chat_queue_length",
			Help: "Messages waiting in an observer queue.",
		}, []string{"queue"}),
		QueueCapacity: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chat_queue_capacity",
			Help: "Capacity of an observer queue.",
		}, []string{"queue"}),
		ProcessCPU: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_process_cpu_percent",
			Help: "CPU usage of the server process.",
		}),
		ProcessRSS: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_process_rss_bytes",
			Help: "Resident memory of the server process.",
		}),
	}
}

func (m *Metrics) SetConnections(pending, authenticated int) {
	if m == nil {
		return
	}
	m.Connections.WithLabelValues("pending").Set(float64(pending))
	m.Connections.WithLabelValues("authenticated").Set(float64(authenticated))
}

func (m *Metrics) Relayed(lang string) {
	if m == nil {
		return
	}
	if lang == "" {
		lang = "und"
	}
	m.MessagesRelayed.WithLabelValues(lang).Inc()
}

func (m *Metrics) Rejected(code string) {
	if m == nil {
		return
	}
	m.MessagesRejected.WithLabelValues(code).Inc()
}

func (m *Metrics) Delivered(ok, failed int) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues("ok").Add(float64(ok))
	m.Deliveries.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) ObservePersist(d time.Duration) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(d.Seconds())
}

func (m *Metrics) Dropped(observer string) {
	if m == nil {
		return
	}
	m.ObservationsDropped.WithLabelValues(observer).Inc()
}

func (m *Metrics) SetProcess(cpu float64, rss uint64) {
	if m == nil {
		return
	}
	m.ProcessCPU.Set(cpu)
	m.ProcessRSS.Set(float64(rss))
}

func (m *Metrics) SetQueue(name string, length, capacity int) {
	if m == nil {
		return
	}
	m.QueueLength.WithLabelValues(name).Set(float64(length))
	m.QueueCapacity.WithLabelValues(name).Set(float64(capacity))
}
