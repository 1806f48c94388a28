package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors on a dedicated registry
type Metrics struct {
	registry *prometheus.Registry

	entityUploads *prometheus.CounterVec
	pings         *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	authorized    prometheus.Gauge
	httpRequests  *prometheus.CounterVec
}

// New registers the linker collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		entityUploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linker_entity_upload_counter",
				Help: "Count entity upload requests",
			},
			[]string{"status"},
		),
		pings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linker_ping_counter",
				Help: "Count calls to ping",
			},
			[]string{"pathname"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linker_authorizations_refresh_counter",
				Help: "Count authorizations refreshes by result",
			},
			[]string{"result"},
		),
		authorized: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "linker_authorized_addresses",
				Help: "Number of addresses in the current authorizations snapshot",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests.",
			},
			[]string{"method", "handler", "code"},
		),
	}

	m.registry.MustRegister(
		m.entityUploads,
		m.pings,
		m.refreshes,
		m.authorized,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// IncEntityUpload counts a terminal outcome of the entities use case
func (m *Metrics) IncEntityUpload(status string) {
	m.entityUploads.WithLabelValues(status).Inc()
}

// IncPing counts a hit on a ping or health route
func (m *Metrics) IncPing(pathname string) {
	m.pings.WithLabelValues(pathname).Inc()
}

// ObserveRefresh records an authorizations refresh and the resulting snapshot size
func (m *Metrics) ObserveRefresh(success bool, addresses int) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.refreshes.WithLabelValues(result).Inc()
	m.authorized.Set(float64(addresses))
}

// RecordHTTPRequest counts a served request by route and status
func (m *Metrics) RecordHTTPRequest(method, handler string, status int) {
	m.httpRequests.WithLabelValues(method, handler, strconv.Itoa(status)).Inc()
}

// Handler exposes the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
