package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus collectors for svc-watchdog.
type Metrics struct {
	registry             *prometheus.Registry
	checkDurationSeconds prometheus.Histogram
	checksTotal          *prometheus.CounterVec
	restartsTotal        *prometheus.CounterVec
	managerErrorsTotal   prometheus.Counter
	lastCheckGauge       prometheus.Gauge
	serviceUp            *prometheus.GaugeVec
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		checkDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "watchdog_check_duration_seconds",
			Help:    "Duration of watchdog check cycles in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watchdog_checks_total",
			Help: "Total checks by service and outcome.",
		}, []string{"service", "outcome"}),
		restartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watchdog_restarts_total",
			Help: "Total restart attempts by service and result.",
		}, []string{"service", "result"}),
		managerErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_manager_errors_total",
			Help: "Total service manager errors.",
		}),
		lastCheckGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watchdog_last_check_timestamp",
			Help: "Unix timestamp of the last completed check.",
		}),
		serviceUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "watchdog_service_up",
			Help: "Whether the watched service was last observed running.",
		}, []string{"service"}),
	}

	registry.MustRegister(
		m.checkDurationSeconds,
		m.checksTotal,
		m.restartsTotal,
		m.managerErrorsTotal,
		m.lastCheckGauge,
		m.serviceUp,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCheckDuration records the duration of a completed check cycle.
func (m *Metrics) ObserveCheckDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.checkDurationSeconds.Observe(duration.Seconds())
}

// IncChecks increments the check counter for the given service/outcome.
func (m *Metrics) IncChecks(service, outcome string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(service, outcome).Inc()
}

// IncRestarts increments the restart counter for the given service/result.
func (m *Metrics) IncRestarts(service, result string) {
	if m == nil {
		return
	}
	m.restartsTotal.WithLabelValues(service, result).Inc()
}

// IncManagerErrors increments the service manager error counter.
func (m *Metrics) IncManagerErrors() {
	if m == nil {
		return
	}
	m.managerErrorsTotal.Inc()
}

// SetLastCheckTimestamp sets the last completed check time.
func (m *Metrics) SetLastCheckTimestamp(t time.Time) {
	if m == nil {
		return
	}
	m.lastCheckGauge.Set(float64(t.Unix()))
}

// SetServiceUp records whether the service was observed running.
func (m *Metrics) SetServiceUp(service string, up bool) {
	if m == nil {
		return
	}
	value := 0.0
	if up {
		value = 1.0
	}
	m.serviceUp.WithLabelValues(service).Set(value)
}
