package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and worker processes.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal         *prometheus.CounterVec
	httpRequestDuration       *prometheus.HistogramVec
	transitionsTotal          *prometheus.CounterVec
	emailsSentTotal           *prometheus.CounterVec
	emailsFailedTotal         *prometheus.CounterVec
	emailsSuppressedTotal     prometheus.Counter
	emailSendDuration         *prometheus.HistogramVec
	auditWriteFailuresTotal   prometheus.Counter
	duplicateMatchesTotal     *prometheus.CounterVec
	dispatchInflight          prometheus.Gauge
	duplicateDeadlinesExpired *prometheus.CounterVec
}

const namespace = "housing_engine"

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_transitions_total",
				Help:      "Application lifecycle transitions by transition name and outcome.",
			},
			[]string{"transition", "outcome"},
		),
		emailsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_sent_total",
				Help:      "Emails handed to the transport successfully.",
			},
			[]string{"transport"},
		),
		emailsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_failed_total",
				Help:      "Emails not delivered, by transport and delivery error code.",
			},
			[]string{"transport", "code"},
		),
		emailsSuppressedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_suppressed_total",
				Help:      "Valid emails skipped because the transport is administratively disabled.",
			},
		),
		emailSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "email_send_duration_seconds",
				Help:      "Transport send duration in seconds grouped by transport.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"transport"},
		),
		auditWriteFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_write_failures_total",
				Help:      "User notification audit records that could not be persisted.",
			},
		),
		duplicateMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_matches_total",
				Help:      "Duplicate matcher hits on submission by dimension.",
			},
			[]string{"dimension"},
		),
		dispatchInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dispatch_inflight",
				Help:      "Queued emails currently being delivered by the dispatch worker.",
			},
		),
		duplicateDeadlinesExpired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_deadlines_expired_total",
				Help:      "Potential duplicates whose response window passed, by applied policy and outcome.",
			},
			[]string{"policy", "outcome"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.transitionsTotal,
		m.emailsSentTotal,
		m.emailsFailedTotal,
		m.emailsSuppressedTotal,
		m.emailSendDuration,
		m.auditWriteFailuresTotal,
		m.duplicateMatchesTotal,
		m.dispatchInflight,
		m.duplicateDeadlinesExpired,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

// IncTransition counts a lifecycle transition; outcome is applied, noop or rejected.
func (m *Metrics) IncTransition(transition string, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(normalizeLabel(transition), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncEmailSent(transport string) {
	if m == nil {
		return
	}
	m.emailsSentTotal.WithLabelValues(normalizeLabel(transport)).Inc()
}

func (m *Metrics) IncEmailFailed(transport string, code string) {
	if m == nil {
		return
	}
	codeLabel := strings.TrimSpace(strings.ToUpper(code))
	if codeLabel == "" {
		codeLabel = "UNKNOWN"
	}
	m.emailsFailedTotal.WithLabelValues(normalizeLabel(transport), codeLabel).Inc()
}

func (m *Metrics) IncEmailSuppressed() {
	if m == nil {
		return
	}
	m.emailsSuppressedTotal.Inc()
}

func (m *Metrics) ObserveEmailSendDuration(transport string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.emailSendDuration.WithLabelValues(normalizeLabel(transport)).Observe(seconds)
}

func (m *Metrics) IncAuditWriteFailure() {
	if m == nil {
		return
	}
	m.auditWriteFailuresTotal.Inc()
}

func (m *Metrics) IncDuplicateMatch(dimension string) {
	if m == nil {
		return
	}
	m.duplicateMatchesTotal.WithLabelValues(normalizeLabel(dimension)).Inc()
}

func (m *Metrics) IncDispatchInFlight() {
	if m == nil {
		return
	}
	m.dispatchInflight.Inc()
}

func (m *Metrics) DecDispatchInFlight() {
	if m == nil {
		return
	}
	m.dispatchInflight.Dec()
}

func (m *Metrics) IncDuplicateDeadlineExpired(policy string, outcome string) {
	if m == nil {
		return
	}
	m.duplicateDeadlinesExpired.WithLabelValues(normalizeLabel(policy), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
