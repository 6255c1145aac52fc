package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/yashrajoria/order-ingestion-service/pkg/aws"
	"github.com/yashrajoria/order-ingestion-service/pkg/metrics"
)

// Metrics records request count and latency in Prometheus and, when the
// CloudWatch client is enabled, in CloudWatch. Either sink may be nil.
func Metrics(prom *metrics.Metrics, cw *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		if prom != nil {
			prom.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			prom.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
		}

		if !cw.IsEnabled() {
			return
		}
		dimensions := map[string]string{
			"Service": serviceName,
			"Method":  method,
			"Route":   route,
			"Status":  statusCodeToRange(status),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = cw.RecordCount(ctx, awspkg.MetricHTTPRequests, dimensions)
			_ = cw.RecordLatency(ctx, awspkg.MetricHTTPLatency, duration, dimensions)
			switch {
			case status >= 500:
				_ = cw.RecordCount(ctx, awspkg.MetricHTTP5xx, dimensions)
			case status >= 400:
				_ = cw.RecordCount(ctx, awspkg.MetricHTTP4xx, dimensions)
			}
		}()
	}
}

func statusCodeToRange(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
