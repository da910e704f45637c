package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowedMethods = "GET,POST,DELETE,OPTIONS"
	corsAllowedHeaders = "Authorization,Content-Type"

	// browsers may cache preflight results for up to ten minutes
	corsMaxAge = "600"
)

// CORSMiddleware reflects the Origin header back for origins on the
// configured allow list. The refresh cookie rides on credentialed requests,
// so a wildcard origin is never emitted.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))

	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")

		if _, ok := allowed[origin]; ok && origin != "" {
			ctx.Header("Access-Control-Allow-Origin", origin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Allow-Methods", corsAllowedMethods)
			ctx.Header("Access-Control-Allow-Headers", corsAllowedHeaders)
			ctx.Header("Access-Control-Max-Age", corsMaxAge)
			ctx.Header("Vary", "Origin")
		}

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
