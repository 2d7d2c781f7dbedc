package ingestion

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons used as the "reason" label.
const (
	ReasonParse      = "parse"
	ReasonValidation = "validation"
	ReasonUnhandled  = "unhandled"
	ReasonDuplicate  = "duplicate"
	ReasonStorage    = "storage"
	ReasonBufferFull = "buffer_full"
	ReasonUnknown    = "unknown_device"
)

const metricsNamespace = "fuel_station"

// Collector owns the Prometheus series for the ingestion pipeline on a private registry.
type Collector struct {
	registry *prometheus.Registry

	received        *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	livenessOffline prometheus.Counter
	connectivity    *prometheus.CounterVec
	bufferDepth     prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.received = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: metricsNamespace, Name: "messages_received_total", Help: "Messages received by device class and message type"},
		[]string{"class", "msg_type"})

	c.dropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: metricsNamespace, Name: "messages_dropped_total", Help: "Messages dropped by reason"},
		[]string{"reason"})

	c.outcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: metricsNamespace, Name: "reconcile_outcomes_total", Help: "Reconciler outcomes by result"},
		[]string{"outcome"})

	c.livenessOffline = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: metricsNamespace, Name: "liveness_offline_total", Help: "Nozzles flagged offline by the liveness sweep"})

	c.connectivity = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: metricsNamespace, Name: "connectivity_events_total", Help: "Broker session events by class and state"},
		[]string{"class", "state"})

	c.bufferDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: metricsNamespace, Name: "ingestion_buffer_depth", Help: "Messages waiting in the ingestion buffer"})

	c.registry.MustRegister(
		c.received, c.dropped, c.outcomes,
		c.livenessOffline, c.connectivity, c.bufferDepth,
		collectors.NewGoCollector(),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Received(class, msgType string) {
	c.received.WithLabelValues(class, msgType).Inc()
}

func (c *Collector) Dropped(reason string) {
	c.dropped.WithLabelValues(reason).Inc()
}

func (c *Collector) Outcome(outcome string) {
	c.outcomes.WithLabelValues(outcome).Inc()
}

func (c *Collector) LivenessOffline() {
	c.livenessOffline.Inc()
}

func (c *Collector) Connectivity(class string, connected bool) {
	state := "disconnected"
	if connected {
		state = "connected"
	}
	c.connectivity.WithLabelValues(class, state).Inc()
}

func (c *Collector) SetBufferDepth(n int) {
	c.bufferDepth.Set(float64(n))
}
