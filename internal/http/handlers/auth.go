package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/statementhub/internal/auth"
	"github.com/geocoder89/statementhub/internal/config"
	"github.com/geocoder89/statementhub/internal/domain/user"
	"github.com/geocoder89/statementhub/internal/repo/postgres"
	"github.com/geocoder89/statementhub/internal/security"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, username, passwordHash string) (user.User, error)
}

type RefreshTokenStore interface {
	Insert(ctx context.Context, row postgres.RefreshTokenRow) error
	Rotate(ctx context.Context, oldID, presentedHash string, newRow postgres.RefreshTokenRow) error
	RevokeByID(ctx context.Context, id string) error
}

type AuthHandler struct {
	users        UserReader
	userWriter   UserWriter
	jwt          *auth.Manager
	refreshStore RefreshTokenStore
	cfg          config.Config
}

func NewAuthHandler(users UserReader, userWriter UserWriter, jwtManager *auth.Manager, refreshStore RefreshTokenStore, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:        users,
		userWriter:   userWriter,
		jwt:          jwtManager,
		refreshStore: refreshStore,
		cfg:          cfg,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SignUpRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.userWriter.Create(cctx, req.Username, hash)

	if err != nil {
		if errors.Is(err, user.ErrDuplicateUsername) {
			RespondBadRequest(ctx, "username_taken", "Username is already in use.", nil)
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	h.issueSession(ctx, cctx, u, http.StatusCreated)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByUsername(cctx, req.Username)
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Username or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Username or password is incorrect.")
		return
	}

	h.issueSession(ctx, cctx, foundUser, http.StatusOK)
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		RespondUnAuthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshToken(claims.UserID, claims.Username)

	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	newRow := postgres.RefreshTokenRow{
		ID:        newJTI,
		UserID:    claims.UserID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: time.Now().UTC(),
	}

	err = h.refreshStore.Rotate(cctx, claims.JTI, h.jwt.HashRefreshToken(raw), newRow)

	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrRefreshTokenExpired):
			RespondUnAuthorized(ctx, "expired_refresh", "Refresh token expired.")
		case errors.Is(err, postgres.ErrRefreshTokenNotFound), errors.Is(err, postgres.ErrRefreshTokenInvalid):
			RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		default:
			RespondInternal(ctx, "Could not refresh session")
		}
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(claims.UserID, claims.Username)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.setRefreshCookie(ctx, newRaw, newExpiresAt)

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		// still clear cookie to be safe
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// revoke that one token (idempotent)
	_ = h.refreshStore.RevokeByID(cctx, claims.JTI)

	h.clearRefreshCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// issueSession generates the access/refresh pair, stores the refresh hash
// and writes the response.
func (h *AuthHandler) issueSession(ctx *gin.Context, cctx context.Context, u user.User, status int) {
	accessToken, err := h.jwt.GenerateAccessToken(u.ID, u.Username)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	rawRefreshToken, jti, expiresAt, err := h.jwt.GenerateRefreshToken(u.ID, u.Username)

	if err != nil {
		RespondInternal(ctx, "Could not generate refresh token")
		return
	}

	row := postgres.RefreshTokenRow{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: h.jwt.HashRefreshToken(rawRefreshToken),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.refreshStore.Insert(cctx, row); err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setRefreshCookie(ctx, rawRefreshToken, expiresAt)

	ctx.JSON(status, gin.H{
		"accessToken": accessToken,
	})
}

func (h *AuthHandler) refreshCookieName() string {
	return "refresh_token"
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	secure := h.cfg.Env == "prod"

	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.refreshCookieName(),
		raw,
		maxAge,
		"/auth",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		h.refreshCookieName(),
		"",
		-1,
		"/auth",
		"",
		secure,
		true,
	)
}
