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

const namespace = "notify_engine"

// Metrics stores Prometheus collectors used by the API, the fan-out and the
// event worker.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	deliveryAttemptsTotal   *prometheus.CounterVec
	deliveriesTotal         *prometheus.CounterVec
	deliveryAttemptDuration *prometheus.HistogramVec
	deliveryRetriesTotal    *prometheus.CounterVec
	deliveriesInflight      *prometheus.GaugeVec
	fanoutEligible          prometheus.Histogram
	eventsConsumedTotal     *prometheus.CounterVec
	monitorTargetUp         *prometheus.GaugeVec
}

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
		deliveryAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delivery_attempts_total",
				Help:      "Total number of delivery attempts by channel and outcome.",
			},
			[]string{"channel", "status"},
		),
		deliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Total number of finished endpoint deliveries by channel and final outcome.",
			},
			[]string{"channel", "status"},
		),
		deliveryAttemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "delivery_attempt_duration_seconds",
				Help:      "Adapter send duration in seconds grouped by channel.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel"},
		),
		deliveryRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delivery_retries_total",
				Help:      "Total number of retries scheduled after a failed attempt.",
			},
			[]string{"channel"},
		),
		deliveriesInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "deliveries_inflight",
				Help:      "Current number of endpoint deliveries in progress grouped by channel.",
			},
			[]string{"channel"},
		),
		fanoutEligible: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fanout_eligible_endpoints",
				Help:      "Number of eligible endpoints per dispatched event.",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		eventsConsumedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_consumed_total",
				Help:      "Total number of queued events handled by the event worker by result.",
			},
			[]string{"result"},
		),
		monitorTargetUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "monitor_target_up",
				Help:      "Whether a monitored service answered its last health check.",
			},
			[]string{"target"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.deliveryAttemptsTotal,
		m.deliveriesTotal,
		m.deliveryAttemptDuration,
		m.deliveryRetriesTotal,
		m.deliveriesInflight,
		m.fanoutEligible,
		m.eventsConsumedTotal,
		m.monitorTargetUp,
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

func (m *Metrics) IncDeliveryAttempt(channel string, status string) {
	if m == nil {
		return
	}
	m.deliveryAttemptsTotal.WithLabelValues(normalizeChannel(channel), normalizeLabel(status)).Inc()
}

func (m *Metrics) IncDelivery(channel string, status string) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(normalizeChannel(channel), normalizeLabel(status)).Inc()
}

func (m *Metrics) ObserveAttemptDuration(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.deliveryAttemptDuration.WithLabelValues(normalizeChannel(channel)).Observe(seconds)
}

func (m *Metrics) IncRetry(channel string) {
	if m == nil {
		return
	}
	m.deliveryRetriesTotal.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) IncDeliveryInFlight(channel string) {
	if m == nil {
		return
	}
	m.deliveriesInflight.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) DecDeliveryInFlight(channel string) {
	if m == nil {
		return
	}
	m.deliveriesInflight.WithLabelValues(normalizeChannel(channel)).Dec()
}

func (m *Metrics) ObserveFanout(eligible int) {
	if m == nil {
		return
	}
	m.fanoutEligible.Observe(float64(eligible))
}

func (m *Metrics) IncEventConsumed(result string) {
	if m == nil {
		return
	}
	m.eventsConsumedTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) SetMonitorTargetUp(target string, up bool) {
	if m == nil {
		return
	}
	value := 0.0
	if up {
		value = 1
	}
	m.monitorTargetUp.WithLabelValues(normalizeLabel(target)).Set(value)
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

func normalizeChannel(channel string) string {
	return normalizeLabel(channel)
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
