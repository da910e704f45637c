package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps request bodies at limit bytes. Prompt payloads are small,
// so anything past the limit fails the subsequent bind with a body-too-large
// error instead of being buffered in full.
func MaxBodyBytes(limit int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)

		ctx.Next()
	}
}
