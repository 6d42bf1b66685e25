package middleware

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	ctxutil "github.com/Payphone-Digital/devcamper/pkg/context"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
)

const slowRequest = 2 * time.Second

// LoggingMiddleware writes one structured entry per request through zap
// instead of gin's text logger.
func LoggingMiddleware() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			requestID := ""
			if param.Request != nil {
				requestID = ctxutil.GetRequestID(param.Request.Context())
			}
			logger.LogRequest(
				param.Method,
				param.Path,
				param.StatusCode,
				param.Latency,
				param.ClientIP,
				param.Request.UserAgent(),
				requestID,
			)

			if param.ErrorMessage != "" {
				logger.GetLogger().Error("Request error",
					zap.String("error", param.ErrorMessage),
					zap.String("method", param.Method),
					zap.String("path", param.Path),
					zap.Int("status_code", param.StatusCode),
					zap.String("request_id", requestID),
				)
			}

			if param.Latency > slowRequest {
				logger.GetLogger().Warn("Slow request detected",
					zap.String("method", param.Method),
					zap.String("path", param.Path),
					zap.Duration("latency", param.Latency),
					zap.String("request_id", requestID),
				)
			}

			return ""
		},
		Output:    io.Discard,
		SkipPaths: []string{"/api/health"},
	})
}

// RecoveryMiddleware turns panics into a logged 500.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered interface{}) {
		logger.LogPanic(recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			constants.BuildErrorResponse(constants.MsgInternalError, nil))
	})
}
