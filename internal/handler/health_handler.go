package handler

import (
	"net/http"

	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/logger"
	"pawnbook-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HealthCheck handles the health check endpoint; ?check=db also pings the database
func HealthCheck(c echo.Context) error {
	if c.QueryParam("check") == "db" {
		conn := database.GetDB()
		if conn == nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unhealthy", "database": "not initialized"})
		}
		sqlDB, err := conn.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request().Context())
		}
		if err != nil {
			logger.FromContext(c).Error("Database health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unhealthy", "database": "unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"status":   "healthy",
			"service":  "pawnbook-service",
			"database": "ok",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": "pawnbook-service",
	})
}

func MetricsHandler(c echo.Context) error {
	handler := prometheus.GetPrometheusHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
