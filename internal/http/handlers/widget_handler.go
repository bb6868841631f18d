// Widget-facing HTTP handlers.
//
// This file exposes the public endpoints consumed by the embedded widget:
//   - GET  /widget/init     (per-project configuration, single fetch on load)
//   - POST /widget/submit   (one feedback report)
//   - GET  /widget.js       (embed loader script)
//
// These endpoints are unauthenticated but keyed by project id, rate limited
// per IP, and never expose dashboard-only fields such as internal notes.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/snapback/snapback-backend/internal/domain"
	"github.com/snapback/snapback-backend/internal/http/middleware"
	"github.com/snapback/snapback-backend/internal/services"
)

// Widget defines the widget-facing operations consumed by HTTP handlers.
type Widget interface {
	Init(ctx context.Context, projectID string) (*services.WidgetInitResponse, error)
	Submit(ctx context.Context, sub services.FeedbackSubmission) (*domain.Feedback, error)
	RecordSubmission(ctx context.Context, projectID, key, feedbackID string, status int) error
	Replay(ctx context.Context, projectID, key string) (*domain.Feedback, error)
}

// WidgetHandlers groups the public /widget endpoints.
type WidgetHandlers struct {
	widget Widget
	// baseURL is the public origin baked into the embed script.
	baseURL string
}

// NewWidgetHandlers binds the widget endpoints to the widget service.
func NewWidgetHandlers(w Widget, baseURL string) *WidgetHandlers {
	return &WidgetHandlers{widget: w, baseURL: strings.TrimRight(baseURL, "/")}
}

// initRequest is the JSON payload accepted by POST /widget/init.
type initRequest struct {
	ProjectID string `json:"projectId"`
}

// Init godoc
// @ID          widgetInit
// @Summary     Widget init configuration
// @Description Returns everything the widget needs to render: appearance,
// @Description categories, capabilities, and URL visibility patterns. An
// @Description unknown project id is a NOT_FOUND error and the widget stays
// @Description hidden.
// @Tags        Widget
// @Produce     json
//
// @Param       projectId  query  string  true  "Project ID"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Missing project id"
// @Failure     404  {object}  handlers.Envelope  "Unknown project"
// @Router      /widget/init [get]
func (h *WidgetHandlers) Init(c *gin.Context) {
	projectID := strings.TrimSpace(c.Query("projectId"))
	if projectID == "" && c.Request.Method == http.MethodPost {
		var req initRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			projectID = strings.TrimSpace(req.ProjectID)
		}
	}
	if projectID == "" {
		fail(c, http.StatusBadRequest, CodeValidation, "projectId is required")
		return
	}
	cfg, err := h.widget.Init(c.Request.Context(), projectID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, cfg)
}

// Submit godoc
// @ID          widgetSubmit
// @Summary     Submit feedback from the widget
// @Description Validates and stores one feedback report. Requests may carry
// @Description an Idempotency-Key header; replaying the same key within its
// @Description TTL returns the original report instead of storing a duplicate.
// @Tags        Widget
// @Accept      json
// @Produce     json
//
// @Param       projectId        query   string                        false "Project ID (also read from body)"
// @Param       Idempotency-Key  header  string                        false "Client-generated dedupe key"
// @Param       body             body    services.FeedbackSubmission   true  "Feedback payload"
//
// @Success     201  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Validation error"
// @Failure     404  {object}  handlers.Envelope  "Unknown project"
// @Failure     429  {object}  handlers.Envelope  "Rate limited"
// @Router      /widget/submit [post]
func (h *WidgetHandlers) Submit(c *gin.Context) {
	var sub services.FeedbackSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		fail(c, http.StatusBadRequest, CodeValidation, "invalid JSON body")
		return
	}
	if q := strings.TrimSpace(c.Query("projectId")); q != "" {
		sub.ProjectID = q
	}

	key, hasKey := middleware.GetIdempotencyKey(c)

	// Replay before storing anything. The middleware pre-check only sees
	// the query projectId, so the handler looks the key up again with the
	// merged project id; a caller sending projectId in the body alone still
	// gets at-most-once semantics.
	if hasKey {
		prev, err := h.widget.Replay(c.Request.Context(), sub.ProjectID, key)
		if err == nil {
			c.Header("Idempotency-Replayed", "true")
			ok(c, http.StatusCreated, prev.WidgetView())
			return
		}
		if !errors.Is(err, services.ErrFeedbackNotFound) {
			failErr(c, err)
			return
		}
		// Unseen or expired key; store a fresh report.
	}

	fb, err := h.widget.Submit(c.Request.Context(), sub)
	if err != nil {
		failErr(c, err)
		return
	}

	if hasKey {
		if rerr := h.widget.RecordSubmission(c.Request.Context(), sub.ProjectID, key, fb.ID, http.StatusCreated); rerr != nil {
			middleware.LoggerFrom(c).Warn().Err(rerr).Msg("record idempotency key")
		}
	}
	middleware.CountSubmission(fb.Category)

	ok(c, http.StatusCreated, fb.WidgetView())
}

// EmbedScript godoc
// @ID          widgetEmbed
// @Summary     Embed loader script
// @Description Tiny bootstrap script that sites drop into a <script> tag.
// @Description It fetches the init configuration and mounts the widget.
// @Tags        Widget
// @Produce     text/javascript
//
// @Param       projectId  query  string  true  "Project ID"
//
// @Success     200  "JavaScript source"
// @Router      /widget.js [get]
func (h *WidgetHandlers) EmbedScript(c *gin.Context) {
	projectID := strings.TrimSpace(c.Query("projectId"))

	// The loader is deliberately static so it caches hard at the CDN edge.
	js := fmt.Sprintf(`(function () {
  "use strict";
  var base = %q;
  var projectId = %q || (document.currentScript && document.currentScript.dataset.projectId) || "";
  if (!projectId) return;
  var s = document.createElement("script");
  s.async = true;
  s.src = base + "/widget/bundle.js";
  s.onload = function () {
    if (window.Snapback && window.Snapback.mount) {
      window.Snapback.mount({ baseUrl: base, projectId: projectId });
    }
  };
  document.head.appendChild(s);
})();
`, h.baseURL, projectID)

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "text/javascript; charset=utf-8", []byte(js))
}

// SubmitProjectID extracts the project id for the idempotency middleware
// without consuming the request body. The widget client sends projectId as a
// query parameter on submit for exactly this reason.
func SubmitProjectID(c *gin.Context) string {
	return strings.TrimSpace(c.Query("projectId"))
}
