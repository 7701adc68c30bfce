package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uniclinic/clinic-api/internal/service"
)

// Metrics records per-request counters and latency. Paths are labelled by
// route template so /slots/:id/claim stays one series regardless of slot id.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			// Unmatched routes collapse into one label to keep cardinality flat.
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
