package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/statementhub/internal/auth"
	"github.com/gin-gonic/gin"
)

// TokenVerifier is the slice of the jwt manager this middleware needs. Tests
// substitute a fake.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireAuth verifies the bearer access token and stashes the resolved
// identity on the context. Downstream handlers consume it as given and never
// re-derive it.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw, ok := bearerToken(ctx.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(ctx, "Missing or invalid Authorization header")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthorized(ctx, "Invalid or expired access token")
			return
		}

		ctx.Set(ctxUserIDKey, claims.UserID)
		ctx.Set(ctxUsernameKey, claims.Username)

		ctx.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "

	if !strings.HasPrefix(header, prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])

	return token, token != ""
}

func abortUnauthorized(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

// UserIDFromContext returns the authenticated user's id set by RequireAuth.
func UserIDFromContext(ctx *gin.Context) (string, bool) {
	v, ok := ctx.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}

	id, ok := v.(string)

	return id, ok
}

// UsernameFromContext returns the authenticated username set by RequireAuth.
func UsernameFromContext(ctx *gin.Context) (string, bool) {
	v, ok := ctx.Get(ctxUsernameKey)
	if !ok {
		return "", false
	}

	name, ok := v.(string)

	return name, ok
}
