// Feedback inbox HTTP handlers.
//
// This file exposes the dashboard endpoints for triaging reports:
//   - GET    /feedback                       (inbox across all projects)
//   - GET    /feedback/{id}                  (fetch one report)
//   - PATCH  /feedback/{id}                  (status, priority, internal notes)
//   - DELETE /feedback/{id}                  (delete)
//   - GET    /feedback/{id}/replies          (reply thread)
//   - POST   /feedback/{id}/replies          (admin reply)
//   - GET    /projects/{id}/feedback         (inbox scoped to one project)
//
// The inbox endpoints return full Feedback rows including internalNotes,
// which is the one field the widget-facing surface never sees.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/snapback/snapback-backend/internal/domain"
	"github.com/snapback/snapback-backend/internal/repo"
	"github.com/snapback/snapback-backend/internal/services"
	"github.com/snapback/snapback-backend/internal/utils"
)

// FeedbackInbox defines the triage operations consumed by HTTP handlers.
type FeedbackInbox interface {
	Get(ctx context.Context, accountID, feedbackID string) (*domain.Feedback, error)
	ListPage(ctx context.Context, projectIDs []string, filter repo.FeedbackFilter, page, pageSize int) ([]domain.Feedback, int64, error)
	Update(ctx context.Context, accountID, feedbackID string, upd services.FeedbackUpdate) (*domain.Feedback, error)
	Delete(ctx context.Context, accountID, feedbackID string) error
	Reply(ctx context.Context, accountID, feedbackID, message, senderEmail string) (*domain.FeedbackReply, error)
	Replies(ctx context.Context, accountID, feedbackID string) ([]domain.FeedbackReply, error)
}

// ProjectScope resolves which projects an account may read feedback for.
type ProjectScope interface {
	ProjectIDs(ctx context.Context, accountID string) ([]string, error)
	Get(ctx context.Context, accountID, projectID string) (*domain.Project, error)
}

// FeedbackHandlers groups the /feedback endpoints.
type FeedbackHandlers struct {
	inbox FeedbackInbox
	scope ProjectScope
}

// NewFeedbackHandlers binds the feedback endpoints to their services.
func NewFeedbackHandlers(inbox FeedbackInbox, scope ProjectScope) *FeedbackHandlers {
	return &FeedbackHandlers{inbox: inbox, scope: scope}
}

// UpdateFeedbackRequest is the JSON payload for a partial feedback update.
// Absent fields are left unchanged.
type UpdateFeedbackRequest struct {
	Status        *string `json:"status"`
	Priority      *string `json:"priority"`
	InternalNotes *string `json:"internalNotes"`
}

// ReplyRequest is the JSON payload for posting an admin reply.
type ReplyRequest struct {
	Message string `json:"message" binding:"required" example:"Thanks, fixed in 1.4.2"`
}

// ListFeedbackResponse wraps a page of feedback and pagination information.
type ListFeedbackResponse struct {
	Feedback   []domain.Feedback `json:"feedback"`
	Pagination utils.Page        `json:"pagination"`
}

// filterFromQuery builds a FeedbackFilter from inbox query parameters.
func filterFromQuery(c *gin.Context) repo.FeedbackFilter {
	return repo.FeedbackFilter{
		Status:   strings.TrimSpace(c.Query("status")),
		Category: strings.TrimSpace(c.Query("category")),
		Priority: strings.TrimSpace(c.Query("priority")),
		Query:    strings.TrimSpace(c.Query("q")),
	}
}

// ListFeedback godoc
// @ID          listFeedback
// @Summary     List feedback across all projects (paginated)
// @Description Inbox over every project the account owns. Filterable by
// @Description status, category, priority, and a free-text query.
// @Tags        Feedback
// @Produce     json
// @Security    BearerAuth
//
// @Param       page      query  int     false  "Page number (1-based)"     default(1)
// @Param       pageSize  query  int     false  "Items per page (max 100)"  default(20)
// @Param       status    query  string  false  "Filter by status"
// @Param       category  query  string  false  "Filter by category"
// @Param       priority  query  string  false  "Filter by priority"
// @Param       q         query  string  false  "Match against message text"
//
// @Success     200  {object}  handlers.Envelope
// @Router      /feedback [get]
func (h *FeedbackHandlers) ListFeedback(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	ids, err := h.scope.ProjectIDs(c.Request.Context(), accountID)
	if err != nil {
		failErr(c, err)
		return
	}
	h.listPage(c, ids)
}

// ListProjectFeedback godoc
// @ID          listProjectFeedback
// @Summary     List feedback for one project (paginated)
// @Tags        Feedback
// @Produce     json
// @Security    BearerAuth
//
// @Param       id        path   string  true   "Project ID"
// @Param       page      query  int     false  "Page number (1-based)"     default(1)
// @Param       pageSize  query  int     false  "Items per page (max 100)"  default(20)
// @Param       status    query  string  false  "Filter by status"
// @Param       category  query  string  false  "Filter by category"
// @Param       priority  query  string  false  "Filter by priority"
// @Param       q         query  string  false  "Match against message text"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     404  {object}  handlers.Envelope  "Not found"
// @Router      /projects/{id}/feedback [get]
func (h *FeedbackHandlers) ListProjectFeedback(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	// Ownership check before listing so a foreign project id yields 404
	// rather than an empty page.
	p, err := h.scope.Get(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	h.listPage(c, []string{p.ID})
}

func (h *FeedbackHandlers) listPage(c *gin.Context, projectIDs []string) {
	page, pageSize := clampPagination(c)
	items, total, err := h.inbox.ListPage(c.Request.Context(), projectIDs, filterFromQuery(c), page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListFeedbackResponse{
		Feedback:   items,
		Pagination: utils.NewPage(page, pageSize, total),
	})
}

// GetFeedback godoc
// @ID          getFeedback
// @Summary     Fetch one feedback item
// @Tags        Feedback
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Feedback ID"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     404  {object}  handlers.Envelope  "Not found"
// @Router      /feedback/{id} [get]
func (h *FeedbackHandlers) GetFeedback(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	fb, err := h.inbox.Get(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, fb)
}

// UpdateFeedback godoc
// @ID          updateFeedback
// @Summary     Update status, priority, or internal notes
// @Description Status changes only move forward (new, in_progress, then a
// @Description terminal state); rejected transitions return UPDATE_FAILED.
// @Tags        Feedback
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                           true  "Feedback ID"
// @Param       body  body  handlers.UpdateFeedbackRequest   true  "Fields to change"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     404  {object}  handlers.Envelope  "Not found"
// @Failure     422  {object}  handlers.Envelope  "Transition not allowed"
// @Router      /feedback/{id} [patch]
func (h *FeedbackHandlers) UpdateFeedback(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	var req UpdateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	fb, err := h.inbox.Update(c.Request.Context(), accountID, c.Param("id"), services.FeedbackUpdate{
		Status:        req.Status,
		Priority:      req.Priority,
		InternalNotes: req.InternalNotes,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, fb)
}

// DeleteFeedback godoc
// @ID          deleteFeedback
// @Summary     Delete a feedback item
// @Tags        Feedback
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Feedback ID"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     404  {object}  handlers.Envelope  "Not found"
// @Router      /feedback/{id} [delete]
func (h *FeedbackHandlers) DeleteFeedback(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	if err := h.inbox.Delete(c.Request.Context(), accountID, c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": true})
}

// ListReplies godoc
// @ID          listReplies
// @Summary     List the reply thread for a feedback item
// @Tags        Feedback
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Feedback ID"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     404  {object}  handlers.Envelope  "Not found"
// @Router      /feedback/{id}/replies [get]
func (h *FeedbackHandlers) ListReplies(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	replies, err := h.inbox.Replies(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"replies": replies})
}

// CreateReply godoc
// @ID          createReply
// @Summary     Post an admin reply
// @Tags        Feedback
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                 true  "Feedback ID"
// @Param       body  body  handlers.ReplyRequest  true  "Reply payload"
//
// @Success     201  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Validation error"
// @Failure     404  {object}  handlers.Envelope  "Not found"
// @Router      /feedback/{id}/replies [post]
func (h *FeedbackHandlers) CreateReply(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	reply, err := h.inbox.Reply(c.Request.Context(), accountID, c.Param("id"), req.Message, "")
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, reply)
}
