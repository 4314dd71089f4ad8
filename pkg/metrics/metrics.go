// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the metrics published by the service.
type Collector struct {
	wsClients      prometheus.Gauge
	eventsTotal    *prometheus.CounterVec
	requestsTotal  *prometheus.CounterVec
	presenceSyncs  prometheus.Counter
	droppedClients prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on the given
// registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sharedcart_ws_clients",
			Help: "Currently connected websocket clients.",
		}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharedcart_events_broadcast_total",
			Help: "Change-feed events broadcast, by type and table.",
		}, []string{"type", "table"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharedcart_http_requests_total",
			Help: "HTTP requests served, by path and status.",
		}, []string{"path", "status"}),
		presenceSyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharedcart_presence_syncs_total",
			Help: "Presence snapshots broadcast to the channel.",
		}),
		droppedClients: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharedcart_ws_clients_dropped_total",
			Help: "Clients unregistered because their send buffer filled up.",
		}),
	}

	reg.MustRegister(
		c.wsClients,
		c.eventsTotal,
		c.requestsTotal,
		c.presenceSyncs,
		c.droppedClients,
	)
	return c
}

func (c *Collector) ClientConnected()    { c.wsClients.Inc() }
func (c *Collector) ClientDisconnected() { c.wsClients.Dec() }
func (c *Collector) ClientDropped()      { c.droppedClients.Inc() }
func (c *Collector) PresenceSync()       { c.presenceSyncs.Inc() }

func (c *Collector) EventBroadcast(eventType, table string) {
	c.eventsTotal.WithLabelValues(eventType, table).Inc()
}

func (c *Collector) HTTPRequest(path, status string) {
	c.requestsTotal.WithLabelValues(path, status).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
