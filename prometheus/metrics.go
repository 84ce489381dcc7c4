package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"pawnbook-service/pkg/config"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP request metrics
var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pawnbook_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pawnbook_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Domain metrics
var (
	AuthErrorsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pawnbook_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"},
	)

	DbOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pawnbook_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	SaleOperationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pawnbook_sale_operations_total",
			Help: "Total number of sale and invoice operations",
		},
		[]string{"operation", "outcome"},
	)

	AttachmentOperationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pawnbook_attachment_operations_total",
			Help: "Total number of image and document operations",
		},
		[]string{"kind", "operation"},
	)

	WebhookEventsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pawnbook_webhook_events_total",
			Help: "Total number of payment provider webhook events",
		},
		[]string{"type", "outcome"},
	)

	InfoGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pawnbook_info",
			Help: "Information about the service",
		},
		[]string{"version", "environment", "prefix"},
	)
)

// Version is reported by the info gauge
const Version = "1.0.0"

// InitMetrics publishes the service info gauge for this configuration
func InitMetrics(config *config.Config) {
	InfoGauge.With(prometheus.Labels{
		"version":     Version,
		"environment": config.Server.Env,
		"prefix":      config.Metrics.Prefix,
	}).Set(1)
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DbOperationDuration.With(prometheus.Labels{"operation": operation}).Observe(time.Since(start).Seconds())
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorsCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordSaleOperation records a sale/invoice operation and whether it succeeded
func RecordSaleOperation(operation string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	SaleOperationsCounter.With(prometheus.Labels{"operation": operation, "outcome": outcome}).Inc()
}

// RecordAttachmentOperation records an image or document operation
func RecordAttachmentOperation(kind, operation string) {
	AttachmentOperationsCounter.With(prometheus.Labels{"kind": kind, "operation": operation}).Inc()
}

// RecordWebhookEvent records a processed webhook event
func RecordWebhookEvent(eventType, outcome string) {
	WebhookEventsCounter.With(prometheus.Labels{"type": eventType, "outcome": outcome}).Inc()
}

// MetricsMiddleware adds prometheus metrics to track HTTP requests
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			labels := prometheus.Labels{
				"method": c.Request().Method,
				"path":   c.Path(),
				"status": strconv.Itoa(status),
			}
			HttpRequestsTotal.With(labels).Inc()
			HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// GetPrometheusHandler returns the scrape handler for /metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}
