package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leave_portal"

// Metrics holds every collector the service exports. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	leaveTransitions *prometheus.CounterVec
	leaveConflicts   prometheus.Counter
	leaveSubmitted   *prometheus.CounterVec

	notificationsQueued  prometheus.Counter
	notificationsFlushed prometheus.Counter
	notificationsDropped *prometheus.CounterVec
	sseDropped           prometheus.Counter

	attendanceImported prometheus.Counter
	cronRuns           *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, plus Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution for HTTP requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"}),
		leaveTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leave_transitions_total",
			Help:      "Leave approval actions applied, by action, level acted at and resulting status.",
		}, []string{"action", "level", "status"}),
		leaveConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leave_transition_conflicts_total",
			Help:      "Leave approval actions refused because the request changed underneath the reviewer.",
		}),
		leaveSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leave_requests_submitted_total",
			Help:      "Leave requests submitted, by leave type.",
		}, []string{"leave_type"}),
		notificationsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_queued_total",
			Help:      "Notifications accepted onto the async queue.",
		}),
		notificationsFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_persisted_total",
			Help:      "Notifications written to the database.",
		}),
		notificationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Notifications that could not be persisted.",
		}, []string{"reason"}),
		sseDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sse_events_dropped_total",
			Help:      "Events skipped because a subscriber buffer was full.",
		}),
		attendanceImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_imported_records_total",
			Help:      "Attendance rows loaded from biometric devices.",
		}),
		cronRuns: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cron_job_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job", "result"}),
	}

	reg.MustRegister(
		m.httpRequests, m.httpLatency,
		m.leaveTransitions, m.leaveConflicts, m.leaveSubmitted,
		m.notificationsQueued, m.notificationsFlushed, m.notificationsDropped, m.sseDropped,
		m.attendanceImported, m.cronRuns,
	)

	return m
}

// Handler exposes the Prometheus scrape endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) LeaveTransition(action, level, status string) {
	if m == nil {
		return
	}
	m.leaveTransitions.WithLabelValues(action, level, status).Inc()
}

func (m *Metrics) LeaveConflict() {
	if m == nil {
		return
	}
	m.leaveConflicts.Inc()
}

func (m *Metrics) LeaveSubmitted(leaveType string) {
	if m == nil {
		return
	}
	m.leaveSubmitted.WithLabelValues(leaveType).Inc()
}

func (m *Metrics) NotificationQueued() {
	if m == nil {
		return
	}
	m.notificationsQueued.Inc()
}

func (m *Metrics) NotificationsPersisted(n int) {
	if m == nil {
		return
	}
	m.notificationsFlushed.Add(float64(n))
}

func (m *Metrics) NotificationFailed(reason string) {
	if m == nil {
		return
	}
	m.notificationsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) SSEDropped(string) {
	if m == nil {
		return
	}
	m.sseDropped.Inc()
}

func (m *Metrics) AttendanceImported(n int64) {
	if m == nil {
		return
	}
	m.attendanceImported.Add(float64(n))
}

func (m *Metrics) CronRun(job string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.cronRuns.WithLabelValues(job, result).Observe(d.Seconds())
}
