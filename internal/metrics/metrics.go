package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "saphari"

// Command publish results used as the "result" label.
const (
	ResultSent         = "sent"
	ResultNotConnected = "not_connected"
	ResultRateLimited  = "rate_limited"
	ResultError        = "error"
)

// Metrics holds the hub's Prometheus collectors on a private registry.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	received      *prometheus.CounterVec // by channel
	decodeErrors  *prometheus.CounterVec // by channel
	unrecognized  prometheus.Counter
	samplesStored prometheus.Counter
	samplesStale  prometheus.Counter

	commands *prometheus.CounterVec // by result

	transportConnected prometheus.Gauge
	wsClients          prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "messages_total",
			Help:      "Inbound transport messages by channel",
		}, []string{"channel"}),

		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "decode_errors_total",
			Help:      "Inbound messages discarded because the payload was malformed",
		}, []string{"channel"}),

		unrecognized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "unrecognized_topics_total",
			Help:      "Inbound messages discarded because the topic was not recognised",
		}),

		samplesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "samples_stored_total",
			Help:      "Metric samples written to the latest-value cache",
		}),

		samplesStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "samples_stale_total",
			Help:      "Metric samples discarded because a newer one was already cached",
		}),

		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "published_total",
			Help:      "Command publish attempts by result",
		}, []string{"result"}),

		transportConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "connected",
			Help:      "1 when the broker connection is up",
		}),

		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "clients",
			Help:      "Connected WebSocket clients",
		}),
	}

	m.registry.MustRegister(
		m.received,
		m.decodeErrors,
		m.unrecognized,
		m.samplesStored,
		m.samplesStale,
		m.commands,
		m.transportConnected,
		m.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// MessageReceived counts an inbound message on a recognised channel.
func (m *Metrics) MessageReceived(channel string) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(channel).Inc()
}

// DecodeError counts a message dropped for a malformed payload.
func (m *Metrics) DecodeError(channel string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(channel).Inc()
}

// UnrecognizedTopic counts a message dropped for an unknown topic.
func (m *Metrics) UnrecognizedTopic() {
	if m == nil {
		return
	}
	m.unrecognized.Inc()
}

// SampleStored counts a sample accepted by the cache.
func (m *Metrics) SampleStored() {
	if m == nil {
		return
	}
	m.samplesStored.Inc()
}

// SampleStale counts a sample rejected as out of order.
func (m *Metrics) SampleStale() {
	if m == nil {
		return
	}
	m.samplesStale.Inc()
}

// CommandPublished counts a publish attempt with one of the Result* labels.
func (m *Metrics) CommandPublished(result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(result).Inc()
}

// SetTransportConnected records the broker connection state.
func (m *Metrics) SetTransportConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.transportConnected.Set(1)
	} else {
		m.transportConnected.Set(0)
	}
}

// SetWebSocketClients records the current hub client count.
func (m *Metrics) SetWebSocketClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}

// Snapshot is a JSON-friendly summary of the hub counters.
type Snapshot struct {
	MessagesReceived   map[string]float64 `json:"messages_received"`
	DecodeErrors       map[string]float64 `json:"decode_errors"`
	UnrecognizedTopics float64            `json:"unrecognized_topics"`
	SamplesStored      float64            `json:"samples_stored"`
	SamplesStale       float64            `json:"samples_stale"`
	Commands           map[string]float64 `json:"commands"`
	TransportConnected bool               `json:"transport_connected"`
	WebSocketClients   float64            `json:"websocket_clients"`
}

// Snapshot gathers the current counter values.
func (m *Metrics) Snapshot() (Snapshot, error) {
	snap := Snapshot{
		MessagesReceived: map[string]float64{},
		DecodeErrors:     map[string]float64{},
		Commands:         map[string]float64{},
	}
	if m == nil {
		return snap, nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return snap, err
	}

	for _, mf := range families {
		switch mf.GetName() {
		case namespace + "_router_messages_total":
			collectLabelled(mf, "channel", snap.MessagesReceived)
		case namespace + "_router_decode_errors_total":
			collectLabelled(mf, "channel", snap.DecodeErrors)
		case namespace + "_router_unrecognized_topics_total":
			snap.UnrecognizedTopics = firstValue(mf)
		case namespace + "_telemetry_samples_stored_total":
			snap.SamplesStored = firstValue(mf)
		case namespace + "_telemetry_samples_stale_total":
			snap.SamplesStale = firstValue(mf)
		case namespace + "_commands_published_total":
			collectLabelled(mf, "result", snap.Commands)
		case namespace + "_transport_connected":
			snap.TransportConnected = firstValue(mf) == 1
		case namespace + "_websocket_clients":
			snap.WebSocketClients = firstValue(mf)
		}
	}
	return snap, nil
}

func collectLabelled(mf *dto.MetricFamily, label string, into map[string]float64) {
	for _, metric := range mf.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == label {
				into[lp.GetValue()] = metricValue(metric)
			}
		}
	}
}

func firstValue(mf *dto.MetricFamily) float64 {
	ms := mf.GetMetric()
	if len(ms) == 0 {
		return 0
	}
	return metricValue(ms[0])
}

func metricValue(m *dto.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	if g := m.GetGauge(); g != nil {
		return g.GetValue()
	}
	return 0
}
