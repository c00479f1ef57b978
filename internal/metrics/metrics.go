package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ttt"

// Metrics holds the server's Prometheus collectors. Each instance owns its own
// registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Connections   prometheus.Gauge
	Authenticated prometheus.Gauge
	Queued        prometheus.Gauge
	LiveGames     prometheus.Gauge

	GamesStarted  prometheus.Counter
	GamesFinished *prometheus.CounterVec // by status
	Messages      *prometheus.CounterVec // inbound, by type
	Errors        *prometheus.CounterVec // outbound error replies, by code
	SlowConsumers prometheus.Counter
}

// New creates and registers all collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open client connections.",
		}),
		Authenticated: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "authenticated_connections",
			Help:      "Connections bound to a logged-in user.",
		}),
		Queued: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "matchmaking_queue_length",
			Help:      "Users waiting for an opponent.",
		}),
		LiveGames: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_games",
			Help:      "Games currently in progress.",
		}),
		GamesStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games started by matchmaking.",
		}),
		GamesFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games finished, by final status.",
		}, []string{"status"}),
		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Inbound protocol messages, by type.",
		}, []string{"type"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "error_replies_total",
			Help:      "Error replies sent to clients, by code.",
		}, []string{"code"}),
		SlowConsumers: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_consumer_disconnects_total",
			Help:      "Connections closed because their send buffer filled.",
		}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
