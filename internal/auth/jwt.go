// Package auth issues and verifies the HS256 token pair used by the API:
// short-lived access tokens carried as bearer headers and long-lived refresh
// tokens carried in an HttpOnly cookie.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongTokenUse = errors.New("token used for wrong purpose")
)

// Claims is the payload shared by both token kinds. TokenType prevents a
// refresh token from being replayed as an access token and vice versa.
// UserID carries its own claim name so it never shadows the registered
// "sub" claim, which issue sets to the same value.
type Claims struct {
	UserID    string `json:"uid"`
	Username  string `json:"username"`
	TokenType string `json:"typ"`
	JTI       string `json:"jti"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens with a single shared HMAC secret.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (m *Manager) issue(userID, username, tokenType, jti string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: tokenType,
		JTI:       jti,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   userID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)

	return signed, expiresAt, err
}

func (m *Manager) GenerateAccessToken(userID, username string) (string, error) {
	signed, _, err := m.issue(userID, username, tokenTypeAccess, uuid.NewString(), m.accessTTL)

	return signed, err
}

// GenerateRefreshToken mints a refresh token and returns its jti and expiry
// so the caller can persist the rotation record alongside it.
func (m *Manager) GenerateRefreshToken(userID, username string) (raw string, jti string, expiresAt time.Time, err error) {
	jti = uuid.NewString()
	raw, expiresAt, err = m.issue(userID, username, tokenTypeRefresh, jti, m.refreshTTL)

	return raw, jti, expiresAt, err
}

// ParseAndValidate checks the signature and expiry of a token of either kind.
func (m *Manager) ParseAndValidate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}

		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (m *Manager) VerifyAccessToken(tokenStr string) (*Claims, error) {
	return m.verifyTyped(tokenStr, tokenTypeAccess)
}

func (m *Manager) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	claims, err := m.verifyTyped(tokenStr, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	if claims.JTI == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (m *Manager) verifyTyped(tokenStr, wantType string) (*Claims, error) {
	claims, err := m.ParseAndValidate(tokenStr)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != wantType {
		return nil, ErrWrongTokenUse
	}

	return claims, nil
}

// HashRefreshToken produces the deterministic HMAC digest stored in place of
// the raw refresh token.
func (m *Manager) HashRefreshToken(raw string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(raw))

	return hex.EncodeToString(mac.Sum(nil))
}
