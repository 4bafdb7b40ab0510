package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metric collectors for the Taskgate API.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authentication metrics.
	AuthSuccessesTotal prometheus.Counter
	AuthFailuresTotal  *prometheus.CounterVec

	// Authorization metrics.
	AuthzDenialsTotal *prometheus.CounterVec

	// Task domain metrics.
	TasksCreatedTotal   prometheus.Counter
	TasksCompletedTotal prometheus.Counter

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskgate_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskgate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		AuthSuccessesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskgate_auth_successes_total",
			Help: "Total number of successful logins.",
		}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskgate_auth_failures_total",
			Help: "Total number of failed logins.",
		}, []string{"reason"}),

		AuthzDenialsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskgate_authz_denials_total",
			Help: "Total number of authorization denials.",
		}, []string{"operation"}),

		TasksCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskgate_tasks_created_total",
			Help: "Total number of tasks created.",
		}),

		TasksCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskgate_tasks_completed_total",
			Help: "Total number of task completions.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskgate_server_start_time_seconds",
			Help: "Unix timestamp of server start.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthSuccessesTotal,
		m.AuthFailuresTotal,
		m.AuthzDenialsTotal,
		m.TasksCreatedTotal,
		m.TasksCompletedTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	return m
}

// RegisterCollector adds an extra collector (such as the DB pool collector)
// to the registry.
func (m *Metrics) RegisterCollector(c prometheus.Collector) {
	m.registry.MustRegister(c)
}

// ObserveRequest records one handled HTTP request.
func (m *Metrics) ObserveRequest(method, pathPattern, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}
