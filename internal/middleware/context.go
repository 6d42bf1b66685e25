package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	ctxutil "github.com/Payphone-Digital/devcamper/pkg/context"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
)

// RequestContext tags every request with a request id, the client address and
// a start time. An incoming X-Request-ID is kept; otherwise a UUID is issued.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderXRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}

		ctx := ctxutil.WithRequestID(c.Request.Context(), requestID)
		ctx = ctxutil.WithValue(ctx, ctxutil.ClientIPKey, c.ClientIP())
		ctx = ctxutil.NewContextWithRequest(ctx, c.Request, "http", c.FullPath())

		c.Request = c.Request.WithContext(ctx)
		c.Header(constants.HeaderXRequestID, requestID)
		c.Next()
	}
}

// RequestTimeout bounds the time handlers may spend on downstream calls.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			logger.WarnWithContext(ctx, "Request exceeded timeout").
				String("method", c.Request.Method).
				String("path", c.Request.URL.Path).
				Duration(timeout).
				Log()
		}
	}
}
