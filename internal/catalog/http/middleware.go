package http

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader    = "X-Request-ID"
	sessionRoutePrefix = "/sessions/"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Set(requestIDHeader, requestID)
		c.Next()
	}
}

// AccessLogMiddleware logs one line per request. Session routes carry the
// session id so a browse flow can be followed across requests.
func AccessLogMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID, _ := c.Get(requestIDHeader)
		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", requestID,
			"client_ip", c.ClientIP(),
		}
		if sessionID := c.Param("id"); sessionID != "" && strings.HasPrefix(c.FullPath(), sessionRoutePrefix) {
			attrs = append(attrs, "session_id", sessionID)
		}
		if len(c.Errors) > 0 {
			logger.Warn("http request", append(attrs, "errors", c.Errors.String())...)
			return
		}
		logger.Info("http request", attrs...)
	}
}
