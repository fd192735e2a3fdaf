package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mediscan-triage-server/internal/metrics"
)

// Metrics records request counts, latencies and error codes.
func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		collector.ObserveRequest(c.Request.Method, c.FullPath(), status, time.Since(start))

		if code := c.GetString(ErrorCodeKey); code != "" {
			collector.ObserveError(code)
		}
		if status == http.StatusTooManyRequests {
			collector.ObserveRateLimited()
		}
	}
}
