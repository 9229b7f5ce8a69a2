// Package api translates control requests into eventloop.Command values.
// Two concrete transports are provided: stdio (newline-delimited JSON)
// and HTTP (JSON + a WebSocket event stream). Bearer-token auth is
// grounded on wingthing's internal/relay/jwt.go, simplified to HS256
// with a random per-process key since there is no persistent identity to
// verify here — only a credential printed once to the operator at
// startup.
package api

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenAuth mints and verifies the single bearer token an ht process
// issues to itself at startup for its HTTP control API.
type TokenAuth struct {
	key   []byte
	token string
}

// NewTokenAuth generates a random signing key and a long-lived token for
// the lifetime of this process.
func NewTokenAuth() (*TokenAuth, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate jwt key: %w", err)
	}
	a := &TokenAuth{key: key}

	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(365 * 24 * time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}
	a.token = signed
	return a, nil
}

// Token returns the bearer token to print to the operator once.
func (a *TokenAuth) Token() string {
	return a.token
}

// Verify checks a bearer token against this process's key.
func (a *TokenAuth) Verify(bearer string) error {
	token, err := jwt.Parse(bearer, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.key, nil
	})
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}
