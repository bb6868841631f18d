// Project HTTP handlers.
//
// This file exposes REST endpoints for project resources:
//   - POST   /projects                      (create)
//   - GET    /projects                      (list, paginated, ETag support)
//   - GET    /projects/{id}                 (fetch)
//   - PATCH  /projects/{id}                 (partial update of widget config)
//   - DELETE /projects/{id}                 (delete with all feedback)
//   - GET    /projects/{id}/stats           (aggregate counts)
//   - POST   /projects/{id}/regenerate-key  (rotate the widget API key)
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/snapback/snapback-backend/internal/domain"
	"github.com/snapback/snapback-backend/internal/repo"
	"github.com/snapback/snapback-backend/internal/services"
	"github.com/snapback/snapback-backend/internal/utils"
)

// Projects defines the project lifecycle operations consumed by HTTP handlers.
type Projects interface {
	Create(ctx context.Context, accountID, name, siteDomain string) (*domain.Project, error)
	ListPage(ctx context.Context, accountID string, page, pageSize int) ([]domain.Project, int64, error)
	Get(ctx context.Context, accountID, projectID string) (*domain.Project, error)
	Update(ctx context.Context, accountID, projectID string, upd services.ProjectUpdate) (*domain.Project, error)
	RegenerateKey(ctx context.Context, accountID, projectID string) (string, error)
	Delete(ctx context.Context, accountID, projectID string) error
	Stats(ctx context.Context, accountID, projectID string) (*repo.ProjectStats, error)
}

// ProjectHandlers groups the /projects endpoints.
type ProjectHandlers struct {
	projects Projects
}

// NewProjectHandlers binds the project endpoints to a project service.
func NewProjectHandlers(p Projects) *ProjectHandlers {
	return &ProjectHandlers{projects: p}
}

// CreateProjectRequest is the JSON payload for creating a project.
type CreateProjectRequest struct {
	// Name optionally sets the project name; derived from Domain when empty.
	Name string `json:"name" example:"Marketing Site"`
	// Domain is the site the widget will be embedded on.
	Domain string `json:"domain" binding:"required" example:"example.com"`
}

// UpdateProjectRequest is the JSON payload for a partial project update.
// Absent fields are left unchanged.
type UpdateProjectRequest struct {
	Name             *string              `json:"name"`
	Domain           *string              `json:"domain"`
	Position         *string              `json:"position"`
	PrimaryColor     *string              `json:"primaryColor"`
	ButtonText       *string              `json:"buttonText"`
	ShowBranding     *bool                `json:"showBranding"`
	Categories       *[]string            `json:"categories"`
	CollectEmail     *string              `json:"collectEmail"`
	AllowScreenshots *bool                `json:"allowScreenshots"`
	AllowReplays     *bool                `json:"allowReplays"`
	URLPatterns      *[]domain.URLPattern `json:"urlPatterns"`
}

// ListProjectsResponse wraps a page of projects and pagination information.
type ListProjectsResponse struct {
	Projects   []domain.Project `json:"projects"`
	Pagination utils.Page       `json:"pagination"`
}

// CreateProject godoc
// @ID          createProject
// @Summary     Create a project
// @Description Creates a project with default widget configuration and a fresh API key.
// @Tags        Projects
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.CreateProjectRequest  true  "Create project payload"
//
// @Success     201  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Validation error"
// @Router      /projects [post]
func (h *ProjectHandlers) CreateProject(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	p, err := h.projects.Create(c.Request.Context(), accountID,
		strings.TrimSpace(req.Name), strings.TrimSpace(req.Domain))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// ListProjects godoc
// @ID          listProjects
// @Summary     List projects (paginated)
// @Description Returns a page of the account's projects. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Projects
// @Produce     json
// @Security    BearerAuth
//
// @Param       page      query  int  false  "Page number (1-based)"     default(1)
// @Param       pageSize  query  int  false  "Items per page (max 100)"  default(20)
//
// @Success     200  {object}  handlers.Envelope
// @Success     304  "Not modified"
// @Router      /projects [get]
func (h *ProjectHandlers) ListProjects(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.projects.ListPage(c.Request.Context(), accountID, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}

	// Weak ETag over the identifying inputs of this page. Cheap to compute
	// and good enough for dashboard polling.
	etag := fmt.Sprintf(`W/"projects-%s-%d-%d-%d"`, accountID, page, pageSize, total)
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Header("ETag", etag)

	ok(c, http.StatusOK, ListProjectsResponse{
		Projects:   items,
		Pagination: utils.NewPage(page, pageSize, total),
	})
}

// GetProject godoc
// @ID          getProject
// @Summary     Fetch a project
// @Tags        Projects
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Project ID"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     404  {object}  handlers.Envelope  "Not found"
// @Router      /projects/{id} [get]
func (h *ProjectHandlers) GetProject(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	p, err := h.projects.Get(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdateProject godoc
// @ID          updateProject
// @Summary     Update a project
// @Description Applies a partial update to the project and its widget configuration.
// @Tags        Projects
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                          true  "Project ID"
// @Param       body  body  handlers.UpdateProjectRequest   true  "Fields to change"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Validation error"
// @Failure     404  {object}  handlers.Envelope  "Not found"
// @Router      /projects/{id} [patch]
func (h *ProjectHandlers) UpdateProject(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	p, err := h.projects.Update(c.Request.Context(), accountID, c.Param("id"), services.ProjectUpdate{
		Name:             req.Name,
		Domain:           req.Domain,
		Position:         req.Position,
		PrimaryColor:     req.PrimaryColor,
		ButtonText:       req.ButtonText,
		ShowBranding:     req.ShowBranding,
		Categories:       req.Categories,
		CollectEmail:     req.CollectEmail,
		AllowScreenshots: req.AllowScreenshots,
		AllowReplays:     req.AllowReplays,
		URLPatterns:      req.URLPatterns,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// DeleteProject godoc
// @ID          deleteProject
// @Summary     Delete a project
// @Description Removes the project together with its feedback and replies.
// @Tags        Projects
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Project ID"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     404  {object}  handlers.Envelope  "Not found"
// @Router      /projects/{id} [delete]
func (h *ProjectHandlers) DeleteProject(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	if err := h.projects.Delete(c.Request.Context(), accountID, c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": true})
}

// ProjectStats godoc
// @ID          projectStats
// @Summary     Project statistics
// @Description Returns total feedback plus per-status and per-category counts.
// @Tags        Projects
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Project ID"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     404  {object}  handlers.Envelope  "Not found"
// @Router      /projects/{id}/stats [get]
func (h *ProjectHandlers) ProjectStats(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	stats, err := h.projects.Stats(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// RegenerateKey godoc
// @ID          regenerateKey
// @Summary     Rotate the widget API key
// @Description Replaces the project's API key. The old key stops working immediately.
// @Tags        Projects
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Project ID"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     404  {object}  handlers.Envelope  "Not found"
// @Router      /projects/{id}/regenerate-key [post]
func (h *ProjectHandlers) RegenerateKey(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	key, err := h.projects.RegenerateKey(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"apiKey": key})
}
