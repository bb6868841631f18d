package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snapback/snapback-backend/internal/domain"
	"github.com/snapback/snapback-backend/internal/services"
)

type stubWidgetSvc struct {
	init     func(ctx context.Context, projectID string) (*services.WidgetInitResponse, error)
	submit   func(ctx context.Context, sub services.FeedbackSubmission) (*domain.Feedback, error)
	record   func(ctx context.Context, projectID, key, feedbackID string, status int) error
	replay   func(ctx context.Context, projectID, key string) (*domain.Feedback, error)
	recorded int
}

func (s *stubWidgetSvc) Init(ctx context.Context, projectID string) (*services.WidgetInitResponse, error) {
	return s.init(ctx, projectID)
}

func (s *stubWidgetSvc) Submit(ctx context.Context, sub services.FeedbackSubmission) (*domain.Feedback, error) {
	return s.submit(ctx, sub)
}

func (s *stubWidgetSvc) RecordSubmission(ctx context.Context, projectID, key, feedbackID string, status int) error {
	s.recorded++
	if s.record != nil {
		return s.record(ctx, projectID, key, feedbackID, status)
	}
	return nil
}

func (s *stubWidgetSvc) Replay(ctx context.Context, projectID, key string) (*domain.Feedback, error) {
	if s.replay != nil {
		return s.replay(ctx, projectID, key)
	}
	return nil, services.ErrFeedbackNotFound
}

func widgetRouter(svc *stubWidgetSvc) *gin.Engine {
	h := NewWidgetHandlers(svc, "https://app.example.com")
	r := gin.New()
	r.GET("/widget/init", h.Init)
	r.POST("/widget/init", h.Init)
	r.POST("/widget/submit", h.Submit)
	r.GET("/widget.js", h.EmbedScript)
	return r
}

func TestWidgetInit_MissingProjectID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubWidgetSvc{init: func(context.Context, string) (*services.WidgetInitResponse, error) {
		t.Fatalf("service should not be called without a project id")
		return nil, nil
	}}
	r := widgetRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/widget/init", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Error == nil || env.Error.Code != CodeValidation {
		t.Fatalf("unexpected envelope: %s", w.Body.String())
	}
}

func TestWidgetInit_UnknownProject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubWidgetSvc{init: func(_ context.Context, projectID string) (*services.WidgetInitResponse, error) {
		if projectID != "ghost" {
			t.Fatalf("projectID = %q", projectID)
		}
		return nil, services.ErrProjectNotFound
	}}
	r := widgetRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/widget/init?projectId=ghost", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Error == nil || env.Error.Code != CodeNotFound {
		t.Fatalf("unexpected envelope: %s", w.Body.String())
	}
}

func TestWidgetInit_POSTBodyFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubWidgetSvc{init: func(_ context.Context, projectID string) (*services.WidgetInitResponse, error) {
		return &services.WidgetInitResponse{ProjectID: projectID, ButtonText: "Feedback"}, nil
	}}
	r := widgetRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/widget/init",
		bytes.NewBufferString(`{"projectId":"p1"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"projectId":"p1"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestWidgetSubmit_ValidationErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubWidgetSvc{submit: func(_ context.Context, sub services.FeedbackSubmission) (*domain.Feedback, error) {
		return nil, services.ErrEmptyMessage
	}}
	r := widgetRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/widget/submit",
		bytes.NewBufferString(`{"projectId":"p1","category":"bug","message":""}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Success || env.Error == nil || env.Error.Code != CodeValidation {
		t.Fatalf("unexpected envelope: %s", w.Body.String())
	}
}

func TestWidgetSubmit_SuccessOmitsInternalFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubWidgetSvc{submit: func(_ context.Context, sub services.FeedbackSubmission) (*domain.Feedback, error) {
		return &domain.Feedback{
			ID:            "fb-1",
			ProjectID:     sub.ProjectID,
			Category:      sub.Category,
			Message:       sub.Message,
			Priority:      "medium",
			Status:        "new",
			InternalNotes: "escalate to Maria",
			CreatedAt:     time.Now(),
		}, nil
	}}
	r := widgetRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/widget/submit",
		bytes.NewBufferString(`{"projectId":"p1","category":"bug","message":"broken"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"id":"fb-1"`) || !strings.Contains(body, `"priority":"medium"`) {
		t.Fatalf("unexpected body: %s", body)
	}
	// The reporter-facing projection must never leak operator fields
	for _, leaked := range []string{"escalate", "internal", "project_id", "status"} {
		if strings.Contains(body, leaked) {
			t.Fatalf("widget response leaked %q: %s", leaked, body)
		}
	}
	if svc.recorded != 0 {
		t.Fatalf("RecordSubmission should not run without an Idempotency-Key")
	}
}

func TestWidgetSubmit_QueryProjectIDWins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen string
	svc := &stubWidgetSvc{submit: func(_ context.Context, sub services.FeedbackSubmission) (*domain.Feedback, error) {
		seen = sub.ProjectID
		return &domain.Feedback{ID: "fb-2", Category: sub.Category, Message: sub.Message}, nil
	}}
	r := widgetRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/widget/submit?projectId=p-query",
		bytes.NewBufferString(`{"projectId":"p-body","category":"bug","message":"hi"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if seen != "p-query" {
		t.Fatalf("expected query projectId to win, got %q", seen)
	}
}

func TestWidgetSubmit_IdempotencyKeyRecorded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var gotKey, gotFeedback string
	svc := &stubWidgetSvc{
		submit: func(_ context.Context, sub services.FeedbackSubmission) (*domain.Feedback, error) {
			return &domain.Feedback{ID: "fb-3", Category: sub.Category, Message: sub.Message}, nil
		},
		record: func(_ context.Context, projectID, key, feedbackID string, status int) error {
			gotKey, gotFeedback = key, feedbackID
			if status != http.StatusCreated {
				t.Fatalf("status = %d", status)
			}
			return nil
		},
	}
	h := NewWidgetHandlers(svc, "https://app.example.com")
	r := gin.New()
	// Stand in for the idempotency middleware
	r.Use(func(c *gin.Context) {
		c.Set("idem.key", c.GetHeader("Idempotency-Key"))
		c.Next()
	})
	r.POST("/widget/submit", h.Submit)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/widget/submit",
		bytes.NewBufferString(`{"projectId":"p1","category":"bug","message":"hi"}`))
	req.Header.Set("Idempotency-Key", "submit-9")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if gotKey != "submit-9" || gotFeedback != "fb-3" {
		t.Fatalf("RecordSubmission saw (%q, %q)", gotKey, gotFeedback)
	}
}

func TestWidgetSubmit_ReplayServesStoredReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubWidgetSvc{
		submit: func(context.Context, services.FeedbackSubmission) (*domain.Feedback, error) {
			t.Fatalf("replay must not store a new report")
			return nil, nil
		},
		replay: func(_ context.Context, projectID, key string) (*domain.Feedback, error) {
			if projectID != "p1" || key != "submit-9" {
				t.Fatalf("replay saw (%q, %q)", projectID, key)
			}
			return &domain.Feedback{ID: "fb-old", Category: "bug", Message: "hi"}, nil
		},
	}
	h := NewWidgetHandlers(svc, "https://app.example.com")
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("idem.key", c.GetHeader("Idempotency-Key"))
		c.Set("idem.replay", true)
		c.Next()
	})
	r.POST("/widget/submit", h.Submit)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/widget/submit",
		bytes.NewBufferString(`{"projectId":"p1","category":"bug","message":"hi"}`))
	req.Header.Set("Idempotency-Key", "submit-9")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("expected replay marker header")
	}
	if !strings.Contains(w.Body.String(), `"id":"fb-old"`) {
		t.Fatalf("expected stored report, got: %s", w.Body.String())
	}
}

func TestWidgetSubmit_BodyOnlyProjectIDStillDedupes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// The pre-handler lookup sees no query projectId for these requests, so
	// dedupe relies entirely on the handler's own replay check.
	stored := map[string]*domain.Feedback{}
	submits := 0
	svc := &stubWidgetSvc{
		submit: func(_ context.Context, sub services.FeedbackSubmission) (*domain.Feedback, error) {
			submits++
			return &domain.Feedback{ID: "fb-1", ProjectID: sub.ProjectID, Category: sub.Category, Message: sub.Message}, nil
		},
		record: func(_ context.Context, projectID, key, feedbackID string, status int) error {
			stored[projectID+"/"+key] = &domain.Feedback{ID: feedbackID, Category: "bug", Message: "hi"}
			return nil
		},
		replay: func(_ context.Context, projectID, key string) (*domain.Feedback, error) {
			if fb, ok := stored[projectID+"/"+key]; ok {
				return fb, nil
			}
			return nil, services.ErrFeedbackNotFound
		},
	}
	h := NewWidgetHandlers(svc, "https://app.example.com")
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("idem.key", c.GetHeader("Idempotency-Key"))
		c.Next()
	})
	r.POST("/widget/submit", h.Submit)

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/widget/submit",
			bytes.NewBufferString(`{"projectId":"p-body","category":"bug","message":"hi"}`))
		req.Header.Set("Idempotency-Key", "key-123")
		r.ServeHTTP(w, req)
		return w
	}

	first := send()
	if first.Code != http.StatusCreated || first.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("first submit: code=%d replayed=%q", first.Code, first.Header().Get("Idempotency-Replayed"))
	}

	second := send()
	if second.Code != http.StatusCreated {
		t.Fatalf("retry: expected 201, got %d", second.Code)
	}
	if second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("retry should be served as a replay")
	}
	if submits != 1 {
		t.Fatalf("same Idempotency-Key stored %d reports, want 1", submits)
	}
	if !strings.Contains(second.Body.String(), `"id":"fb-1"`) {
		t.Fatalf("retry body: %s", second.Body.String())
	}
}

func TestWidgetSubmit_ExpiredReplayFallsThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	submitted := false
	svc := &stubWidgetSvc{
		submit: func(_ context.Context, sub services.FeedbackSubmission) (*domain.Feedback, error) {
			submitted = true
			return &domain.Feedback{ID: "fb-new", Category: sub.Category, Message: sub.Message}, nil
		},
		replay: func(context.Context, string, string) (*domain.Feedback, error) {
			return nil, services.ErrFeedbackNotFound
		},
	}
	h := NewWidgetHandlers(svc, "https://app.example.com")
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("idem.key", "submit-9")
		c.Set("idem.replay", true)
		c.Next()
	})
	r.POST("/widget/submit", h.Submit)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/widget/submit",
		bytes.NewBufferString(`{"projectId":"p1","category":"bug","message":"hi"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if !submitted {
		t.Fatalf("expected a fresh submission when the stored key vanished")
	}
	if !strings.Contains(w.Body.String(), `"id":"fb-new"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestEmbedScript(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := widgetRouter(&stubWidgetSvc{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/widget.js?projectId=p1", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/javascript") {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "max-age=3600") {
		t.Fatalf("Cache-Control = %q", cc)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"https://app.example.com"`) || !strings.Contains(body, `"p1"`) {
		t.Fatalf("unexpected script: %s", body)
	}
}

func TestSubmitProjectID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/widget/submit?projectId=%20p1%20", nil)

	if got := SubmitProjectID(c); got != "p1" {
		t.Fatalf("SubmitProjectID = %q", got)
	}
}
