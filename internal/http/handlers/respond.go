package handlers

import (
	"net/http"

	"github.com/geocoder89/statementhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// APIError is the uniform error envelope. Details carries field-level
// validation problems; RequestID lets clients quote the failing request.
type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if v, ok := ctx.Get(middlewares.CtxRequestID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}

	// the middleware also echoes the id into the header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	apiErr := APIError{
		Code:      code,
		Message:   message,
		RequestID: requestIDFrom(ctx),
		Details:   details,
	}

	ctx.JSON(status, gin.H{"error": apiErr})
}

func RespondBadRequest(ctx *gin.Context, code, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, code, message, details)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondBadGateway maps upstream generation failures.
func RespondBadGateway(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusBadGateway, code, message, nil)
}

// RespondServiceUnavailable maps upstream outages clients should retry.
func RespondServiceUnavailable(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusServiceUnavailable, code, message, nil)
}
