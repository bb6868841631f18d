package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type stubVerifier struct {
	accountID string
	err       error
	seen      string
}

func (s *stubVerifier) Verify(token string) (string, error) {
	s.seen = token
	return s.accountID, s.err
}

func TestAccountID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if id, ok := AccountID(c); id != "" || ok {
		t.Fatalf("expected no account on fresh context, got %q", id)
	}
	c.Set(accountIDKey, "acc-1")
	if id, ok := AccountID(c); !ok || id != "acc-1" {
		t.Fatalf("expected acc-1, got %q ok=%v", id, ok)
	}
	c.Set(accountIDKey, 99)
	if id, ok := AccountID(c); id != "" || ok {
		t.Fatalf("non-string account id should read as absent, got %q", id)
	}
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		header     string
		verifier   *stubVerifier
		wantStatus int
	}{
		{"missing header", "", &stubVerifier{}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", &stubVerifier{}, http.StatusUnauthorized},
		{"empty token", "Bearer   ", &stubVerifier{}, http.StatusUnauthorized},
		{"verifier rejects", "Bearer bad", &stubVerifier{err: errors.New("expired")}, http.StatusUnauthorized},
		{"verifier returns empty id", "Bearer odd", &stubVerifier{}, http.StatusUnauthorized},
		{"valid token", "Bearer good", &stubVerifier{accountID: "acc-9"}, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RequireAuth(tc.verifier))
			r.GET("/me", func(c *gin.Context) {
				id, ok := AccountID(c)
				if !ok || id == "" {
					t.Fatalf("handler reached without account id")
				}
				c.JSON(http.StatusOK, gin.H{"id": id})
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, w.Code)
			}
			if tc.wantStatus == http.StatusUnauthorized {
				var body struct {
					Success bool `json:"success"`
					Error   struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatalf("invalid JSON body: %v", err)
				}
				if body.Success || body.Error.Code != "UNAUTHORIZED" {
					t.Fatalf("unexpected body: %s", w.Body.String())
				}
			}
		})
	}

	// Token text reaches the verifier trimmed
	v := &stubVerifier{accountID: "acc-1"}
	r := gin.New()
	r.Use(RequireAuth(v))
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer  tok-123 ")
	r.ServeHTTP(w, req)
	if v.seen != "tok-123" {
		t.Fatalf("verifier saw %q", v.seen)
	}
}
