package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shard-legends/clan-service/internal/auth"
)

// LoggingMiddleware provides request logging
type LoggingMiddleware struct {
	logger *zap.Logger
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger *zap.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// LogRequests logs every request once it has been served
func (m *LoggingMiddleware) LogRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.Int("response_size", c.Writer.Size()),
		}
		if user, ok := auth.GetUserFromContext(c); ok {
			fields = append(fields, zap.Int("user_id", user.UserID))
		}

		switch {
		case status >= 500:
			fields = append(fields, zap.String("error_details", c.Errors.String()))
			m.logger.Error("HTTP request failed", fields...)
		case status >= 400:
			m.logger.Warn("HTTP request rejected", fields...)
		default:
			m.logger.Info("HTTP request processed", fields...)
		}
	}
}
