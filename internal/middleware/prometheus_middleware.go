package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/example/resumehub/internal/metrics"
)

// PrometheusMiddleware returns a gin.HandlerFunc that counts requests by method,
// route pattern and status code.
// The route pattern (e.g. /api/v1/resumes/:id) is used instead of the raw path so
// resume ids do not become label values; unmatched requests share one "unmatched"
// label. Scrapes of /metrics are not counted.
func PrometheusMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RequestCount.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
