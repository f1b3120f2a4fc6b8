package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/userportal/internal/logger"
)

// RequestLogger はリクエストごとにメソッド・パス・ステータス・処理時間を記録します。
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.Int("status", status),
			logger.String("latency", time.Since(start).String()),
			logger.String("clientIp", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error(c.Request.Context(), "request", fields...)
		case status >= 400:
			log.Warn(c.Request.Context(), "request", fields...)
		default:
			log.Info(c.Request.Context(), "request", fields...)
		}
	}
}
