package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"travel-gateway/pkg/metrics"
)

type MetricsMiddleware struct {
	logger *logrus.Logger
}

func NewMetricsMiddleware(logger *logrus.Logger) *MetricsMiddleware {
	return &MetricsMiddleware{
		logger: logger,
	}
}

func (m *MetricsMiddleware) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Unmatched paths share one label
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		duration := float64(time.Since(start).Milliseconds())
		metrics.GatewayRequestLatency.WithLabelValues(route).Observe(duration)

		status := metrics.GetStatusClass(c.Writer.Status())
		metrics.GatewayRequestTotal.WithLabelValues(
			route,
			c.Request.Method,
			status,
		).Inc()
	}
}
