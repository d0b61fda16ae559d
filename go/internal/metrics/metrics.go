// Package metrics collects field-of-play counters. Components depend on Collector; the
// Prometheus implementation is wired in main and served on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector defines the metrics the field-of-play components record.
type Collector interface {
	RecordCommand(platform, command string, accepted bool, duration time.Duration)
	RecordEventPublished(platform, kind string)
	RecordEventDropped(platform, subscriber string)
	RecordPost(platform, endpoint string, status int, duration time.Duration)
	RecordPostDropped(platform, endpoint string)
	RecordResync(platform string)
	RecordRelayPublish(kind string, success bool)
	SetConnections(platform string, n int)
}

// NoOpCollector is used when metrics aren't needed.
type NoOpCollector struct{}

func (NoOpCollector) RecordCommand(string, string, bool, time.Duration) {}
func (NoOpCollector) RecordEventPublished(string, string)               {}
func (NoOpCollector) RecordEventDropped(string, string)                 {}
func (NoOpCollector) RecordPost(string, string, int, time.Duration)     {}
func (NoOpCollector) RecordPostDropped(string, string)                  {}
func (NoOpCollector) RecordResync(string)                               {}
func (NoOpCollector) RecordRelayPublish(string, bool)                   {}
func (NoOpCollector) SetConnections(string, int)                        {}

// PrometheusCollector implements Collector with Prometheus vectors.
type PrometheusCollector struct {
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	eventsPublished *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	posts           *prometheus.CounterVec
	postDuration    *prometheus.HistogramVec
	postsDropped    *prometheus.CounterVec
	resyncs         *prometheus.CounterVec
	relayPublishes  *prometheus.CounterVec
	connections     *prometheus.GaugeVec
}

func NewPrometheusCollector(namespace string) *PrometheusCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &PrometheusCollector{
		registry: reg,
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled by a field of play, by outcome.",
		}, []string{"platform", "command", "outcome"}),
		commandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent handling one command.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}, []string{"platform"}),
		eventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "UI events published on the local bus.",
		}, []string{"platform", "kind"}),
		eventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "UI events dropped because a subscriber was full.",
		}, []string{"platform", "subscriber"}),
		posts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarder_posts_total",
			Help:      "POSTs to the public results service by endpoint and status.",
		}, []string{"platform", "endpoint", "status"}),
		postDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forwarder_post_duration_seconds",
			Help:      "Latency of POSTs to the public results service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		postsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarder_posts_dropped_total",
			Help:      "POSTs dropped because every sender was busy.",
		}, []string{"platform", "endpoint"}),
		resyncs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarder_resyncs_total",
			Help:      "Configuration bundles pushed after a 412.",
		}, []string{"platform"}),
		relayPublishes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_publishes_total",
			Help:      "UI events relayed to NATS.",
		}, []string{"kind", "status"}),
		connections: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Open display connections per platform.",
		}, []string{"platform"}),
	}
}

func (m *PrometheusCollector) RecordCommand(platform, command string, accepted bool, duration time.Duration) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	m.commands.WithLabelValues(platform, command, outcome).Inc()
	m.commandDuration.WithLabelValues(platform).Observe(duration.Seconds())
}

func (m *PrometheusCollector) RecordEventPublished(platform, kind string) {
	m.eventsPublished.WithLabelValues(platform, kind).Inc()
}

func (m *PrometheusCollector) RecordEventDropped(platform, subscriber string) {
	m.eventsDropped.WithLabelValues(platform, subscriber).Inc()
}

func (m *PrometheusCollector) RecordPost(platform, endpoint string, status int, duration time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.posts.WithLabelValues(platform, endpoint, code).Inc()
	m.postDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *PrometheusCollector) RecordPostDropped(platform, endpoint string) {
	m.postsDropped.WithLabelValues(platform, endpoint).Inc()
}

func (m *PrometheusCollector) RecordResync(platform string) {
	m.resyncs.WithLabelValues(platform).Inc()
}

func (m *PrometheusCollector) RecordRelayPublish(kind string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.relayPublishes.WithLabelValues(kind, status).Inc()
}

func (m *PrometheusCollector) SetConnections(platform string, n int) {
	m.connections.WithLabelValues(platform).Set(float64(n))
}

// Registry exposes the underlying registry, mostly for tests.
func (m *PrometheusCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics.
func (m *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
