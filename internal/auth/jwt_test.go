package auth

import (
	"errors"
	"testing"
	"time"
)

func TestNewJWT_Validation(t *testing.T) {
	if _, err := NewJWT("", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := NewJWT("secret", 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
	if _, err := NewJWT("secret", time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJWT_IssueVerifyRoundtrip(t *testing.T) {
	j, err := NewJWT("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewJWT: %v", err)
	}

	tok, exp, err := j.Issue("acc-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tok == "" {
		t.Fatalf("expected non-empty token")
	}
	if until := time.Until(exp); until < 55*time.Minute || until > 65*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	got, err := j.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != "acc-42" {
		t.Fatalf("subject = %q; want acc-42", got)
	}
}

func TestJWT_Verify_Failures(t *testing.T) {
	j, _ := NewJWT("test-secret", time.Hour)
	tok, _, err := j.Issue("acc-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	t.Run("garbage token", func(t *testing.T) {
		if _, err := j.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewJWT("different-secret", time.Hour)
		if _, err := other.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		if _, err := j.Verify(tok); err != nil {
			t.Fatalf("token should still be valid: %v", err)
		}
		// Move the clock past the expiry
		j.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { j.now = time.Now }()
		if _, err := j.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		mutated := tok[:len(tok)-2] + "xx"
		if _, err := j.Verify(mutated); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})
}
