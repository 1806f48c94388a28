package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

// RequestRecorder records one served HTTP request
type RequestRecorder interface {
	RecordHTTPRequest(method, handler string, status int)
}

// RequestID tags every request with an id, reusing the caller's one when given
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs each request once it has been served
func RequestLogger(logger *zap.Logger, recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		if recorder != nil {
			recorder.RecordHTTPRequest(c.Request.Method, route, status)
		}

		fields := []zap.Field{
			zap.String("requestId", c.GetString("requestID")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if status >= 500 {
			logger.Error("Request served", fields...)
			return
		}
		logger.Debug("Request served", fields...)
	}
}

// Recovery turns handler panics into a 500 response
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Panic serving request",
			zap.String("requestId", c.GetString("requestID")),
			zap.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}
