// Package auth implements the identity backend behind an explicit interface:
// HMAC-signed JWTs carrying the account ID as subject. Handlers and services
// never see the token mechanics, only issue/verify.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, expired, or mis-signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// JWT issues and verifies HS256 session tokens.
type JWT struct {
	secret []byte
	ttl    time.Duration
	issuer string

	// now is a test seam for expiry checks.
	now func() time.Time
}

// NewJWT constructs a JWT signer. ttl must be positive; the secret must be
// non-empty.
func NewJWT(secret string, ttl time.Duration) (*JWT, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("jwt ttl must be positive")
	}
	return &JWT{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "snapback",
		now:    time.Now,
	}, nil
}

// Issue returns a signed token whose subject is accountID.
func (j *JWT) Issue(accountID string) (string, time.Time, error) {
	now := j.now().UTC()
	exp := now.Add(j.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		Issuer:    j.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// Verify parses a token and returns the account ID it identifies. Any
// parsing, signature, or expiry failure maps to ErrInvalidToken.
func (j *JWT) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	},
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return j.now() }),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
