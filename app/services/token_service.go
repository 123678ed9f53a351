package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// WildcardSession is the claim value granting access to every session,
// for operator tokens. Session-bound tokens carry the session id
// instead and can only touch that one workspace.
const WildcardSession = "*"

// TokenService handles bearer token generation and validation. It is
// wired into the router only when a signing secret is configured.
type TokenService struct {
	secret     []byte
	expiration time.Duration
}

// NewTokenService creates a new token service
func NewTokenService(secret string, expirationSec int64) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		expiration: time.Duration(expirationSec) * time.Second,
	}
}

// Claims represents the token claims
type Claims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// GenerateToken generates a signed token bound to a session id, or to
// every session when sessionID is WildcardSession.
func (t *TokenService) GenerateToken(sessionID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    "sandbox-svc",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a token and returns its session id claim.
func (t *TokenService) ValidateToken(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	return claims.SessionID, nil
}
