// Account profile HTTP handlers.
//
// This file exposes the /user endpoints:
//   - GET   /user/profile      (fetch the signed-in account)
//   - PATCH /user/profile      (rename)
//   - PUT   /user/password     (change password)
//   - GET   /user/onboarding   (step completion map)
//   - POST  /user/onboarding   (mark a step done or skipped)
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/snapback/snapback-backend/internal/domain"
	"github.com/snapback/snapback-backend/internal/services"
)

// Accounts defines the profile operations consumed by HTTP handlers.
type Accounts interface {
	Profile(ctx context.Context, accountID string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, accountID, name string) (*domain.Account, error)
	ChangePassword(ctx context.Context, accountID, current, next string) error
	Onboarding(ctx context.Context, accountID string) (map[string]services.OnboardingStatus, error)
	AdvanceOnboarding(ctx context.Context, accountID, step, status string) (map[string]services.OnboardingStatus, error)
}

// UserHandlers groups the /user endpoints.
type UserHandlers struct {
	accounts Accounts
}

// NewUserHandlers binds the profile endpoints to the account service.
func NewUserHandlers(a Accounts) *UserHandlers {
	return &UserHandlers{accounts: a}
}

// UpdateProfileRequest is the JSON payload for renaming the account.
type UpdateProfileRequest struct {
	Name string `json:"name" binding:"required" example:"Ada Lovelace"`
}

// ChangePasswordRequest is the JSON payload for changing the password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// OnboardingRequest is the JSON payload for advancing an onboarding step.
type OnboardingRequest struct {
	Step   string `json:"step" binding:"required" example:"installWidget"`
	Status string `json:"status" example:"completed"`
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Fetch the signed-in account
// @Tags        User
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.Envelope
// @Router      /user/profile [get]
func (h *UserHandlers) GetProfile(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	acc, err := h.accounts.Profile(c.Request.Context(), accountID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, acc)
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Rename the account
// @Description Names shorter than two characters are rejected.
// @Tags        User
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.UpdateProfileRequest  true  "Profile payload"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Validation error"
// @Router      /user/profile [patch]
func (h *UserHandlers) UpdateProfile(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	acc, err := h.accounts.UpdateProfile(c.Request.Context(), accountID, strings.TrimSpace(req.Name))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, acc)
}

// ChangePassword godoc
// @ID          changePassword
// @Summary     Change the account password
// @Tags        User
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.ChangePasswordRequest  true  "Password payload"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Validation error"
// @Failure     401  {object}  handlers.Envelope  "Wrong current password"
// @Router      /user/password [put]
func (h *UserHandlers) ChangePassword(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	if err := h.accounts.ChangePassword(c.Request.Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"changed": true})
}

// GetOnboarding godoc
// @ID          getOnboarding
// @Summary     Onboarding progress
// @Tags        User
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.Envelope
// @Router      /user/onboarding [get]
func (h *UserHandlers) GetOnboarding(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	steps, err := h.accounts.Onboarding(c.Request.Context(), accountID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"steps": steps})
}

// AdvanceOnboarding godoc
// @ID          advanceOnboarding
// @Summary     Mark an onboarding step done or skipped
// @Description Steps only move forward; re-posting a completed step keeps the
// @Description first completion.
// @Tags        User
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.OnboardingRequest  true  "Step payload"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Unknown step"
// @Router      /user/onboarding [post]
func (h *UserHandlers) AdvanceOnboarding(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	var req OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	status := req.Status
	if status == "" {
		status = "completed"
	}
	steps, err := h.accounts.AdvanceOnboarding(c.Request.Context(), accountID, req.Step, status)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"steps": steps})
}
