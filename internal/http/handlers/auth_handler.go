// Authentication HTTP handlers.
//
// This file exposes the session endpoints:
//   - POST /auth/signup   (register, returns session token)
//   - POST /auth/signin   (login, returns session token)
//   - POST /auth/signout  (stateless acknowledgement)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/snapback/snapback-backend/internal/services"
)

// Sessions defines the authentication operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type Sessions interface {
	// Signup registers a new account and returns a signed-in session.
	Signup(ctx context.Context, email, password, name string) (*services.Session, error)
	// Signin authenticates credentials and returns a session.
	Signin(ctx context.Context, email, password string) (*services.Session, error)
}

// AuthHandlers groups the /auth endpoints.
type AuthHandlers struct {
	sessions Sessions
}

// NewAuthHandlers binds the auth endpoints to a session service.
func NewAuthHandlers(s Sessions) *AuthHandlers {
	return &AuthHandlers{sessions: s}
}

// SignupRequest is the JSON payload for registering an account.
type SignupRequest struct {
	Email    string `json:"email" binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"correct horse battery"`
	Name     string `json:"name" binding:"required" example:"Ada Lovelace"`
}

// SigninRequest is the JSON payload for signing in.
type SigninRequest struct {
	Email    string `json:"email" binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"correct horse battery"`
}

// Signup godoc
// @ID          signup
// @Summary     Register a new account
// @Description Creates an account and returns a bearer token for the new session.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.SignupRequest  true  "Signup payload"
//
// @Success     201  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Validation error"
// @Failure     409  {object}  handlers.Envelope  "Email already registered"
// @Router      /auth/signup [post]
func (h *AuthHandlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	sess, err := h.sessions.Signup(c.Request.Context(),
		strings.TrimSpace(req.Email), req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, sess)
}

// Signin godoc
// @ID          signin
// @Summary     Sign in
// @Description Authenticates credentials and returns a bearer token. Unknown
// @Description email and wrong password produce the same error.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.SigninRequest  true  "Signin payload"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     401  {object}  handlers.Envelope  "Signin failed"
// @Router      /auth/signin [post]
func (h *AuthHandlers) Signin(c *gin.Context) {
	var req SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	sess, err := h.sessions.Signin(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}

// Signout godoc
// @ID          signout
// @Summary     Sign out
// @Description Tokens are stateless, so signout only acknowledges; clients
// @Description discard the token locally.
// @Tags        Auth
// @Produce     json
//
// @Success     200  {object}  handlers.Envelope
// @Router      /auth/signout [post]
func (h *AuthHandlers) Signout(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"signedOut": true})
}
