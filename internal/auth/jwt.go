package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims represents the claims in a session token
type SessionClaims struct {
	SessionID string `json:"session_id"`
	Language  string `json:"language,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates session tokens with an HMAC secret
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue generates a token for a session and returns it with its expiry
func (i *TokenIssuer) Issue(sessionID, language string) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := &SessionClaims{
		SessionID: sessionID,
		Language:  language,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate validates a token and returns its claims
func (i *TokenIssuer) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
