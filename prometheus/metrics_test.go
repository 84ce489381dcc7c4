package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"pawnbook-service/pkg/config"
)

func TestMetricsMiddlewareCountsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(MetricsMiddleware())
	e.GET("/things/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	before := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues(http.MethodGet, "/things/:id", "204"))
	for i := 0; i < 3; i++ {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/42", nil))
	}
	after := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues(http.MethodGet, "/things/:id", "204"))

	assert.Equal(t, 3.0, after-before)
}

func TestRecordHelpers(t *testing.T) {
	InitMetrics(&config.Config{Server: config.ServerConfig{Env: "test"}, Metrics: config.MetricsConfig{Prefix: "pawnbook"}})
	assert.Equal(t, 1.0, testutil.ToFloat64(InfoGauge.WithLabelValues(Version, "test", "pawnbook")))

	RecordSaleOperation("create", false)
	assert.GreaterOrEqual(t, testutil.ToFloat64(SaleOperationsCounter.WithLabelValues("create", "failure")), 1.0)

	RecordWebhookEvent("invoice.payment_failed", "processed")
	assert.GreaterOrEqual(t, testutil.ToFloat64(WebhookEventsCounter.WithLabelValues("invoice.payment_failed", "processed")), 1.0)

	TrackDBOperation("query")(time.Now())
	assert.Equal(t, 1, testutil.CollectAndCount(DbOperationDuration))
}
