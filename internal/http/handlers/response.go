// Package handlers wires the HTTP surface of the Snapback backend.
//
// Every endpoint resolves to a uniform JSON envelope:
//
//	{"success": true,  "data": {...}}
//	{"success": false, "error": {"code": "...", "message": "...", "details": {...}}}
//
// Error codes are stable machine-readable strings; messages are for humans
// and may change without notice.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapback/snapback-backend/internal/http/middleware"
	"github.com/snapback/snapback-backend/internal/repo"
	"github.com/snapback/snapback-backend/internal/services"
	"github.com/snapback/snapback-backend/internal/utils"
)

// Stable error codes returned in the error envelope.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeRateLimited  = "RATE_LIMITED"
	CodeSigninFailed = "SIGNIN_FAILED"
	CodeUpdateFailed = "UPDATE_FAILED"
	CodeServerError  = "SERVER_ERROR"
)

// Envelope is the uniform response shape for success and failure.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries a machine-readable code, a human message, and optional
// structured details (field-level validation errors and the like).
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ok writes a success envelope with the given payload.
func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Fail writes a failure envelope and aborts the handler chain. Exported for
// router-level fallbacks (NoRoute, NoMethod).
func Fail(c *gin.Context, status int, code, message string) {
	fail(c, status, code, message)
}

// fail writes a failure envelope and aborts the handler chain.
func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}

// failDetails writes a failure envelope with structured details attached.
func failDetails(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// failErr maps known service and repo errors onto envelope responses. It is
// the single place handler files route errors through so the status/code
// mapping stays consistent.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound),
		errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrFeedbackNotFound):
		fail(c, http.StatusNotFound, CodeNotFound, "resource not found")
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, CodeSigninFailed, "invalid email or password")
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusConflict, CodeValidation, "email is already registered")
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusUnprocessableEntity, CodeUpdateFailed, "status transition not allowed")
	case errors.Is(err, services.ErrNameTooShort),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrInvalidStep),
		errors.Is(err, services.ErrEmptyProjectName),
		errors.Is(err, services.ErrInvalidPattern),
		errors.Is(err, services.ErrInvalidCollectEmail),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrMessageTooLong),
		errors.Is(err, services.ErrInvalidCategory),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrEmailRequired),
		errors.Is(err, services.ErrScreenshotTooLarge),
		errors.Is(err, services.ErrCapabilityDisabled):
		fail(c, http.StatusBadRequest, CodeValidation, err.Error())
	default:
		fail(c, http.StatusInternalServerError, CodeServerError, "internal server error")
	}
}

// mustAccountID returns the authenticated account id, or writes a 401
// envelope and returns "" when the auth middleware did not run.
func mustAccountID(c *gin.Context) string {
	id, okID := middleware.AccountID(c)
	if !okID || id == "" {
		fail(c, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
		return ""
	}
	return id
}

// clampPagination parses page/pageSize query parameters with sane bounds.
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = utils.AtoiDefault(c.Query("page"), 1)
	pageSize = utils.AtoiDefault(c.Query("pageSize"), 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
