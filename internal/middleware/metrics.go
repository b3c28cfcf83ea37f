// Package middleware provides the Gin middleware chain of the dashboard backend.
// Everything here is registered in internal/api/router.go before any route handler:
//
//	Recovery → Tracing (optional) → RequestID → Metrics → Logger → Security → CORS → RateLimit → Auth → Handler
//
// Security headers run early so they appear on every response including errors.
// Rate limiting runs before auth so anonymous floods never reach the session table.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/keydash/dashboard/internal/telemetry"
)

// MetricsMiddleware records http_requests_total and http_request_duration_seconds
// for every request.
//
// The path label is the matched route template from c.FullPath() (for example
// /trpc/:procedure), never the raw URL. Unmatched requests use "<no-route>" so
// scanners cannot inflate label cardinality. Per-procedure outcomes are counted
// separately by the procedure layer.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
