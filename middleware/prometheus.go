package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "code"},
	)

	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)

	requestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method", "path"},
	)

	requestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_size_bytes",
			Help:    "Size of HTTP requests in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path", "code"},
	)

	responseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "response_size_bytes",
			Help:    "Size of HTTP responses in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path", "code"},
	)

	errorRate = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "error_rate_total",
			Help: "Total number of HTTP errors",
		},
		[]string{"method", "path", "code"},
	)

	workflowOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_workflow_outcomes_total",
			Help: "Outcomes of screen actions (sign-in, recovery, federated sign-in, profile save)",
		},
		[]string{"action", "outcome"},
	)

	screensOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "account_screens_open",
			Help: "Number of live screen sessions",
		},
		[]string{"screen"},
	)
)

// RecordWorkflowOutcome counts the outcome of a screen action.
// Outcomes are a closed set: ok, rejected, cancelled, error, shared.
func RecordWorkflowOutcome(action, outcome string) {
	workflowOutcomes.WithLabelValues(action, outcome).Inc()
}

// ScreenOpened adjusts the live screen gauge; delta is +1 on open and -1 on close.
func ScreenOpened(screen string, delta float64) {
	screensOpen.WithLabelValues(screen).Add(delta)
}

// infrastructurePaths are probe and scrape endpoints. They are kept out of
// metrics, traces and request logs.
var infrastructurePaths = []string{
	"/health", "/healthz", "/ready", "/readyz", "/livez", "/metrics", "/favicon.ico",
}

func isInfrastructurePath(path string) bool {
	for _, skip := range infrastructurePaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return false
}

// PrometheusMiddleware records RED metrics per route template. Requests that
// match no route share the "unmatched" label so screen ids never become labels.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isInfrastructurePath(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		requestsInFlight.WithLabelValues(method, path).Inc()
		defer requestsInFlight.WithLabelValues(method, path).Dec()

		c.Next()

		status := c.Writer.Status()
		code := strconv.Itoa(status)
		requestDuration.WithLabelValues(method, path, code).Observe(time.Since(start).Seconds())
		requestTotal.WithLabelValues(method, path, code).Inc()
		if c.Request.ContentLength > 0 {
			requestSize.WithLabelValues(method, path, code).Observe(float64(c.Request.ContentLength))
		}
		responseSize.WithLabelValues(method, path, code).Observe(float64(c.Writer.Size()))
		if status >= 500 {
			errorRate.WithLabelValues(method, path, code).Inc()
		}
	}
}
