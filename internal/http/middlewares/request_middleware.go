package middlewares

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestID honors an inbound X-Request-Id or mints one, echoing it back on
// the response so generation failures can be traced across services.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		ctx.Writer.Header().Set(requestIDHeader, id)
		ctx.Set(CtxRequestID, id)

		ctx.Next()
	}
}

// RequestLogger emits one structured line per request after the handler
// chain completes. Slow generation requests show up here via latency_ms.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			// unmatched paths have no route template
			route = ctx.Request.URL.Path
		}

		reqID, _ := ctx.Get(CtxRequestID)

		log.InfoContext(ctx.Request.Context(), "http_request",
			"method", ctx.Request.Method,
			"route", route,
			"status", ctx.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", reqID,
		)
	}
}
