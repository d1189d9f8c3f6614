package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/servimatch/servimatch/internal/monitoring"
	"github.com/servimatch/servimatch/pkg/metrics"
)

// Metrics records request latency metrics for each HTTP request.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		status := strconv.Itoa(c.Writer.Status())
		metrics.APILatency.WithLabelValues(c.Request.Method, path, status).Observe(elapsed.Seconds())
		monitoring.ObserveAPILatency(c.Request.Method, path, status, elapsed)
	}
}
