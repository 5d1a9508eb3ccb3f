package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HilmiKilavuz/EcoScan/internal/logger"
)

// RequestLoggingMiddleware logs every HTTP request with latency and caller info
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method

		if raw != "" {
			path = path + "?" + raw
		}

		logger.Infof("HTTP %s %s status=%d latency_ms=%d client_ip=%s",
			method, path, status, latency.Milliseconds(), clientIP)
	}
}
