package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shard-legends/clan-service/pkg/metrics"
)

// MetricsMiddleware creates a middleware that collects HTTP metrics
func MetricsMiddleware(metricsCollector *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsCollector == nil {
			c.Next()
			return
		}

		start := time.Now()
		path := c.FullPath()
		// unmatched routes share one label so scanners cannot grow the series count
		if path == "" {
			path = "unmatched"
		}

		metricsCollector.HTTPRequestsInFlight.Inc()
		defer metricsCollector.HTTPRequestsInFlight.Dec()

		c.Next()

		metricsCollector.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
