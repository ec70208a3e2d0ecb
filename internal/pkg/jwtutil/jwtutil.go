// Package jwtutil reads display hints out of a backend-issued token. It never
// verifies signatures: authorization stays with the backend.
package jwtutil

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNotJWT = errors.New("token is not a jwt")

type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Peek extracts subject and expiry without validating the token.
func Peek(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNotJWT
	}
	parser := jwt.NewParser()
	var registered jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(token, &registered); err != nil {
		return nil, ErrNotJWT
	}
	out := &Claims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		out.ExpiresAt = registered.ExpiresAt.Time
	}
	return out, nil
}

// Expired reports whether the token carries an expiry that has passed. Tokens
// without a readable expiry are not considered expired.
func Expired(token string, now time.Time) bool {
	claims, err := Peek(token)
	if err != nil || claims.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(claims.ExpiresAt)
}
