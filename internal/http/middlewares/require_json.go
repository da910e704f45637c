package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireJSON rejects write requests whose Content-Type is not JSON before
// any handler attempts to bind the body. Reads pass through untouched.
func RequireJSON() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !methodCarriesBody(ctx.Request.Method) {
			ctx.Next()
			return
		}

		if !isJSONContentType(ctx.GetHeader("Content-Type")) {
			ctx.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
				"error": gin.H{
					"code":    "unsupported_media_type",
					"message": "Content-Type must be application/json",
				},
			})
			return
		}

		ctx.Next()
	}
}

func methodCarriesBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func isJSONContentType(header string) bool {
	// strip parameters such as "; charset=utf-8"
	mediaType, _, _ := strings.Cut(header, ";")

	return strings.EqualFold(strings.TrimSpace(mediaType), "application/json")
}
