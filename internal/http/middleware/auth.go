// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication for the dashboard API.
// Token mechanics live behind the TokenVerifier interface so the middleware
// stays decoupled from the concrete identity backend.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenVerifier checks a session token and returns the account it
// identifies.
type TokenVerifier interface {
	Verify(token string) (accountID string, err error)
}

// AccountID returns the authenticated account id set by RequireAuth. The
// second return value is false on unauthenticated requests (widget routes).
func AccountID(c *gin.Context) (string, bool) {
	v, ok := c.Get(accountIDKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// RequireAuth returns a middleware that rejects requests without a valid
// `Authorization: Bearer <token>` header. On success the account id is
// stored in the Gin context for handlers, the logger, and the rate limiter.
//
// Failures use the standard envelope with the UNAUTHORIZED code:
//
//	HTTP/1.1 401 Unauthorized
//	{ "success": false, "error": { "code": "UNAUTHORIZED", "message": "missing or invalid session" } }
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			abortUnauthorized(c)
			return
		}
		accountID, err := verifier.Verify(token)
		if err != nil || accountID == "" {
			abortUnauthorized(c)
			return
		}
		c.Set(accountIDKey, accountID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": "missing or invalid session",
		},
	})
}
