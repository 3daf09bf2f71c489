// Package auth issues and verifies the bearer tokens callers present on the
// user-facing API. Tokens are HS256 with a shared secret.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"keepsafe/internal/domain"
)

const DefaultTokenTTL = 12 * time.Hour

type Claims struct {
	jwt.RegisteredClaims
	UserName string `json:"user_name,omitempty"`
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}, nil
}

func (m *TokenManager) Mint(userID, userName string, now time.Time) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserName: userName,
	})
	return token.SignedString(m.secret)
}

// Verify parses and validates the token, returning the caller's identity.
// Any failure maps to ErrUnauthorized so callers cannot distinguish a bad
// signature from an expired token.
func (m *TokenManager) Verify(tokenString string) (userID, userName string, err error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", "", domain.ErrUnauthorized
	}
	return claims.Subject, claims.UserName, nil
}
