package observability

import (
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "dory"

// Route kinds used as the "route" label.
const (
	RouteStatic   = "static"
	RouteDynamic  = "dynamic"
	RouteNotFound = "not_found"
	RouteContinue = "continue"
)

// Monitor collects request metrics into its own Prometheus registry
type Monitor struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeWorkers   prometheus.Gauge
	workerFailures  prometheus.Counter
	fileReloads     prometheus.Counter
	restarts        prometheus.Counter
}

// NewMonitor creates a monitor with a fresh registry
func NewMonitor() *Monitor {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Monitor{
		registry: registry,

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests answered, by route kind and status code",
		}, []string{"route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from accept to the response being flushed",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		activeWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Connections currently being handled",
		}),

		workerFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_failures_total",
			Help:      "Connections whose handling ended in an error",
		}),

		fileReloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_reload_passes_total",
			Help:      "Change notification drain passes run before serving a static file",
		}),

		restarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Times the server was restarted after a top-level failure",
		}),
	}
}

// Registry exposes the underlying registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest records one answered request
func (m *Monitor) RecordRequest(route string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// WorkerStarted marks a connection as being handled
func (m *Monitor) WorkerStarted() {
	m.activeWorkers.Inc()
}

// WorkerExited marks a connection as finished
func (m *Monitor) WorkerExited(failed bool) {
	m.activeWorkers.Dec()
	if failed {
		m.workerFailures.Inc()
	}
}

// FileReloadPass counts a drain of change notifications
func (m *Monitor) FileReloadPass() {
	m.fileReloads.Inc()
}

// Restarted counts a crash-only restart
func (m *Monitor) Restarted() {
	m.restarts.Inc()
}

// WriteText writes every metric in the Prometheus text exposition format
func (m *Monitor) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// TextContentType is the content type of WriteText's output
const TextContentType = "text/plain; version=0.0.4"
