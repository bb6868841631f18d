package widget

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func jsonBody(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestSubmitEmptyMessageNeverHitsNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		jsonBody(t, w, http.StatusCreated, `{"success":true,"data":{"id":"f1"}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ProjectID: "p1"})

	_, err := c.Submit(context.Background(), Submission{Category: "bug", Message: "   "})
	var werr *Error
	if !errors.As(err, &werr) || werr.Code != ErrCodeValidation {
		t.Fatalf("want VALIDATION_ERROR, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("server was hit %d times for an invalid submission", n)
	}
}

func TestSubmitRejectsUnknownEnumsLocally(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		jsonBody(t, w, http.StatusCreated, `{"success":true,"data":{"id":"f1"}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ProjectID: "p1"})

	cases := []struct {
		name string
		sub  Submission
	}{
		{"unknown category", Submission{Category: "bogus", Message: "x"}},
		{"empty category", Submission{Message: "x"}},
		{"unknown priority", Submission{Category: "bug", Message: "x", Priority: "urgent"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Submit(context.Background(), tc.sub)
			var werr *Error
			if !errors.As(err, &werr) || werr.Code != ErrCodeValidation {
				t.Fatalf("want VALIDATION_ERROR, got %v", err)
			}
		})
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("server was hit %d times for invalid enums", n)
	}
}

func TestSubmitDefaultsPriorityToMedium(t *testing.T) {
	var sent struct {
		ProjectID string `json:"projectId"`
		Priority  string `json:"priority"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		jsonBody(t, w, http.StatusCreated, `{"success":true,"data":{"id":"f1","priority":"medium"}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ProjectID: "p1"})
	rec, err := c.Submit(context.Background(), Submission{Category: "bug", Message: "broken"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sent.Priority != "medium" {
		t.Fatalf("payload priority = %q, want medium", sent.Priority)
	}
	if sent.ProjectID != "p1" {
		t.Fatalf("payload projectId = %q, want p1", sent.ProjectID)
	}
	if rec.ID != "f1" {
		t.Fatalf("receipt id = %q", rec.ID)
	}
}

func TestSubmitExplicitPriorityKept(t *testing.T) {
	var sent struct {
		Priority string `json:"priority"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&sent)
		jsonBody(t, w, http.StatusCreated, `{"success":true,"data":{"id":"f1"}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ProjectID: "p1"})
	if _, err := c.Submit(context.Background(), Submission{Category: "bug", Message: "x", Priority: "critical"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sent.Priority != "critical" {
		t.Fatalf("payload priority = %q, want critical", sent.Priority)
	}
}

func TestSubmitRateLimitedCodePassesThrough(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		jsonBody(t, w, http.StatusTooManyRequests,
			`{"success":false,"error":{"code":"RATE_LIMITED","message":"too many submissions"}}`)
	}))
	defer srv.Close()

	var hookCode string
	c := New(Config{BaseURL: srv.URL, ProjectID: "p1", OnError: func(e *Error) { hookCode = e.Code }})

	_, err := c.Submit(context.Background(), Submission{Category: "bug", Message: "x"})
	var werr *Error
	if !errors.As(err, &werr) || werr.Code != ErrCodeRateLimited {
		t.Fatalf("want RATE_LIMITED, got %v", err)
	}
	if hookCode != ErrCodeRateLimited {
		t.Fatalf("OnError saw %q", hookCode)
	}
	// No automatic retry: exactly one request.
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("server hit %d times, want 1", n)
	}
}

func TestSubmitServerFailureNoRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		jsonBody(t, w, http.StatusInternalServerError,
			`{"success":false,"error":{"code":"SERVER_ERROR","message":"boom"}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ProjectID: "p1"})
	_, err := c.Submit(context.Background(), Submission{Category: "bug", Message: "x"})
	var werr *Error
	if !errors.As(err, &werr) || werr.Code != ErrCodeServer {
		t.Fatalf("want SERVER_ERROR, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("server hit %d times, want 1", n)
	}
}

func TestInitFetchesOnceAndCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if got := r.URL.Query().Get("projectId"); got != "p1" {
			t.Errorf("projectId = %q", got)
		}
		jsonBody(t, w, http.StatusOK,
			`{"success":true,"data":{"projectId":"p1","buttonText":"Feedback","categories":["bug"],"urlPatterns":[]}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ProjectID: "p1"})
	for i := 0; i < 3; i++ {
		cfg, err := c.Init(context.Background())
		if err != nil {
			t.Fatalf("Init #%d: %v", i, err)
		}
		if cfg.ProjectID != "p1" || cfg.ButtonText != "Feedback" {
			t.Fatalf("unexpected config: %+v", cfg)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("init fetched %d times, want 1", n)
	}
}

func TestInitUnknownProjectFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonBody(t, w, http.StatusNotFound,
			`{"success":false,"error":{"code":"NOT_FOUND","message":"resource not found"}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ProjectID: "nope"})
	_, err := c.Init(context.Background())
	var werr *Error
	if !errors.As(err, &werr) || werr.Code != ErrCodeNotFound {
		t.Fatalf("want NOT_FOUND, got %v", err)
	}
	// Failed init means the widget never renders anywhere.
	if c.VisibleOn("https://example.com/") {
		t.Fatal("widget visible after failed init")
	}
}

func TestInitUnreachableBackendFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	c := New(Config{BaseURL: srv.URL, ProjectID: "p1"})
	_, err := c.Init(context.Background())
	var werr *Error
	if !errors.As(err, &werr) || werr.Code != ErrCodeServer {
		t.Fatalf("want SERVER_ERROR, got %v", err)
	}
	if c.VisibleOn("https://example.com/") {
		t.Fatal("widget visible with unreachable backend")
	}
}

func TestVisibleOnUsesFetchedPatterns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonBody(t, w, http.StatusOK, `{"success":true,"data":{
			"projectId":"p1",
			"urlPatterns":[
				{"pattern":"https://example.com/admin/*","type":"exclude"}
			]}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ProjectID: "p1"})
	if _, err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if c.VisibleOn("https://example.com/admin/users") {
		t.Fatal("excluded page should hide widget")
	}
	if !c.VisibleOn("https://example.com/pricing") {
		t.Fatal("non-excluded page should show widget")
	}
}

func TestSubmitMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ProjectID: "p1"})
	_, err := c.Submit(context.Background(), Submission{Category: "bug", Message: "x"})
	var werr *Error
	if !errors.As(err, &werr) || werr.Code != ErrCodeServer {
		t.Fatalf("want SERVER_ERROR for malformed body, got %v", err)
	}
}
