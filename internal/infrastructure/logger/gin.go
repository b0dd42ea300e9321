package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// secretParams are route parameters that carry credentials. Signature
// links put their token in the path.
var secretParams = []string{"token"}

// quietPaths are polled by probes and logged at debug level
var quietPaths = map[string]bool{"/health": true}

// GinMiddleware logs one line per request and stores a request-scoped
// logger in the gin context and the request context.
func GinMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := loggablePath(c)

		ctx, reqLogger := WithRequestID(c.Request.Context(), logger, c.GetString("request_id"))
		reqLogger = reqLogger.With(
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)
		c.Set("logger", reqLogger)
		c.Request = c.Request.WithContext(WithContext(ctx, reqLogger))

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if n := c.Writer.Header().Get("X-Quote-Number"); n != "" {
			fields = append(fields, zap.String("number", n))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		reqLogger.Check(requestLevel(status, quietPaths[c.FullPath()]), "HTTP Request").Write(fields...)
	}
}

func requestLevel(status int, quiet bool) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	case quiet:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// loggablePath returns the request path with secret parameters masked
func loggablePath(c *gin.Context) string {
	path := c.Request.URL.Path
	for _, name := range secretParams {
		if v := c.Param(name); v != "" {
			path = strings.Replace(path, v, ":"+name, 1)
		}
	}
	return path
}

// Recovery turns a panic into a 500 response and an error log
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.String("request_id", c.GetString("request_id")),
					zap.String("method", c.Request.Method),
					zap.String("path", loggablePath(c)),
					zap.Any("error", err),
					zap.Stack("stacktrace"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   gin.H{"code": "ERR_INTERNAL", "message": "An unexpected error occurred"},
				})
			}
		}()
		c.Next()
	}
}

// GetGinLogger returns the request logger, a no-op logger outside GinMiddleware
func GetGinLogger(c *gin.Context) *zap.Logger {
	if l, ok := c.Get("logger"); ok {
		if zl, ok := l.(*zap.Logger); ok {
			return zl
		}
	}
	return zap.NewNop()
}
