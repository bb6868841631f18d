package services

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/snapback/snapback-backend/internal/domain"
	"github.com/snapback/snapback-backend/internal/repo"
	"gorm.io/gorm"
)

func newWidgetFixture(t *testing.T, mutateProject func(*domain.Project), tier string) (*WidgetService, *domain.Project, *gorm.DB) {
	t.Helper()
	db := newServiceDB(t, &domain.Account{}, &domain.Project{}, &domain.Feedback{}, &domain.Idempotency{})
	ctx := context.Background()

	acc, err := repo.CreateAccount(ctx, db, "owner@example.com", "hash", "Owner")
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if tier != "" && tier != domain.TierFree {
		if err := repo.UpdateAccount(ctx, db, acc.ID, map[string]any{"tier": tier}); err != nil {
			t.Fatalf("set tier: %v", err)
		}
	}

	p := &domain.Project{
		AccountID:        acc.ID,
		Name:             "Site",
		Domain:           "example.com",
		Position:         "bottom-right",
		PrimaryColor:     "#6366f1",
		ButtonText:       "Feedback",
		ShowBranding:     true,
		Categories:       domain.Categories(),
		CollectEmail:     "optional",
		AllowScreenshots: true,
	}
	if mutateProject != nil {
		mutateProject(p)
	}
	if _, err := repo.CreateProject(ctx, db, p); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	svc := NewWidgetService(db, nil, 0)
	return svc, p, db
}

func TestWidgetInit_UnknownProject(t *testing.T) {
	svc, _, _ := newWidgetFixture(t, nil, "")
	ctx := context.Background()

	if _, err := svc.Init(ctx, "does-not-exist"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("unknown id = %v", err)
	}
	if _, err := svc.Init(ctx, "  "); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("blank id = %v", err)
	}
}

func TestWidgetInit_TierGating(t *testing.T) {
	// Free tier: replays forced off, branding forced on.
	svc, p, _ := newWidgetFixture(t, func(p *domain.Project) {
		p.AllowReplays = true
		p.ShowBranding = false
	}, domain.TierFree)

	cfg, err := svc.Init(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if cfg.AllowReplays {
		t.Fatal("free tier must not get replays")
	}
	if !cfg.ShowBranding {
		t.Fatal("free tier must keep branding")
	}

	// Business tier: configuration wins.
	svc, p, _ = newWidgetFixture(t, func(p *domain.Project) {
		p.AllowReplays = true
		p.ShowBranding = false
	}, domain.TierBusiness)

	cfg, err = svc.Init(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !cfg.AllowReplays || cfg.ShowBranding {
		t.Fatalf("business tier gating wrong: %+v", cfg)
	}
	if cfg.Tier != domain.TierBusiness {
		t.Fatalf("tier = %q", cfg.Tier)
	}
}

func TestWidgetInit_CacheAndInvalidate(t *testing.T) {
	db := newServiceDB(t, &domain.Account{}, &domain.Project{}, &domain.Feedback{})
	ctx := context.Background()
	acc, _ := repo.CreateAccount(ctx, db, "owner@example.com", "hash", "Owner")
	p, err := repo.CreateProject(ctx, db, &domain.Project{
		AccountID: acc.ID, Name: "Site", ButtonText: "Feedback",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := NewWidgetService(db, nil, time.Minute)

	first, err := svc.Init(ctx, p.ID)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	// A direct DB change is invisible while the cache holds the old entry.
	if err := repo.UpdateProject(ctx, db, p.ID, acc.ID, map[string]any{"button_text": "Report"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	cached, err := svc.Init(ctx, p.ID)
	if err != nil || cached.ButtonText != first.ButtonText {
		t.Fatalf("cache miss: %+v err=%v", cached, err)
	}

	svc.InvalidateInit(p.ID)
	fresh, err := svc.Init(ctx, p.ID)
	if err != nil || fresh.ButtonText != "Report" {
		t.Fatalf("invalidate did not refresh: %+v err=%v", fresh, err)
	}
}

func TestWidgetSubmit_Validation(t *testing.T) {
	svc, p, _ := newWidgetFixture(t, func(p *domain.Project) {
		p.CollectEmail = "required"
	}, "")
	ctx := context.Background()

	base := FeedbackSubmission{ProjectID: p.ID, Category: domain.CategoryBug, Message: "broken", Email: "u@example.com"}

	cases := []struct {
		name    string
		mutate  func(*FeedbackSubmission)
		wantErr error
	}{
		{"empty message", func(s *FeedbackSubmission) { s.Message = "  " }, ErrEmptyMessage},
		{"message too long", func(s *FeedbackSubmission) { s.Message = strings.Repeat("x", 5001) }, ErrMessageTooLong},
		{"bad category", func(s *FeedbackSubmission) { s.Category = "rant" }, ErrInvalidCategory},
		{"bad priority", func(s *FeedbackSubmission) { s.Priority = "urgent" }, ErrInvalidPriority},
		{"unknown project", func(s *FeedbackSubmission) { s.ProjectID = "ghost" }, ErrProjectNotFound},
		{"missing required email", func(s *FeedbackSubmission) { s.Email = " " }, ErrEmailRequired},
		{"replay without capability", func(s *FeedbackSubmission) { s.Replay = "rec-1" }, ErrCapabilityDisabled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := base
			tc.mutate(&sub)
			if _, err := svc.Submit(ctx, sub); !errors.Is(err, tc.wantErr) {
				t.Fatalf("Submit = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestWidgetSubmit_DefaultsPriorityMediumAndStatusNew(t *testing.T) {
	svc, p, _ := newWidgetFixture(t, nil, "")

	fb, err := svc.Submit(context.Background(), FeedbackSubmission{
		ProjectID: p.ID,
		Category:  domain.CategoryFeature,
		Message:   "please add dark mode",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if fb.Priority != domain.PriorityMedium {
		t.Fatalf("priority = %q, want medium", fb.Priority)
	}
	if fb.Status != domain.StatusNew {
		t.Fatalf("status = %q, want new", fb.Status)
	}
	if fb.InternalNotes != "" {
		t.Fatalf("fresh feedback carries notes: %q", fb.InternalNotes)
	}
}

func TestWidgetSubmit_Screenshots(t *testing.T) {
	svc, p, _ := newWidgetFixture(t, nil, "")
	svc.MaxScreenshotKB = 1
	ctx := context.Background()

	// Screenshots disabled on the project.
	svcOff, pOff, _ := newWidgetFixture(t, func(p *domain.Project) { p.AllowScreenshots = false }, "")
	_, err := svcOff.Submit(ctx, FeedbackSubmission{
		ProjectID: pOff.ID, Category: "bug", Message: "x",
		Screenshot: base64.StdEncoding.EncodeToString([]byte("png")),
	})
	if !errors.Is(err, ErrCapabilityDisabled) {
		t.Fatalf("disabled screenshots = %v", err)
	}

	// Not base64 at all.
	_, err = svc.Submit(ctx, FeedbackSubmission{
		ProjectID: p.ID, Category: "bug", Message: "x", Screenshot: "???not-base64???",
	})
	if !errors.Is(err, ErrCapabilityDisabled) {
		t.Fatalf("garbage screenshot = %v", err)
	}

	// Over the size cap.
	big := base64.StdEncoding.EncodeToString(make([]byte, 2<<10))
	_, err = svc.Submit(ctx, FeedbackSubmission{
		ProjectID: p.ID, Category: "bug", Message: "x", Screenshot: big,
	})
	if !errors.Is(err, ErrScreenshotTooLarge) {
		t.Fatalf("oversized screenshot = %v", err)
	}

	// Within the cap, no store configured: accepted without a ref.
	small := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png"))
	fb, err := svc.Submit(ctx, FeedbackSubmission{
		ProjectID: p.ID, Category: "bug", Message: "x", Screenshot: small,
	})
	if err != nil {
		t.Fatalf("small screenshot: %v", err)
	}
	if fb.ScreenshotRef != "" {
		t.Fatalf("ref without store: %q", fb.ScreenshotRef)
	}
}

func TestWidgetIdempotencyReplay(t *testing.T) {
	svc, p, _ := newWidgetFixture(t, nil, "")
	ctx := context.Background()

	fb, err := svc.Submit(ctx, FeedbackSubmission{ProjectID: p.ID, Category: "bug", Message: "once"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := svc.RecordSubmission(ctx, p.ID, "key-1", fb.ID, 201); err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}
	// Racing duplicate is swallowed.
	if err := svc.RecordSubmission(ctx, p.ID, "key-1", "other-feedback", 201); err != nil {
		t.Fatalf("duplicate RecordSubmission: %v", err)
	}

	got, err := svc.Replay(ctx, p.ID, "key-1")
	if err != nil || got.ID != fb.ID {
		t.Fatalf("Replay: %+v err=%v", got, err)
	}
	if _, err := svc.Replay(ctx, p.ID, "never-seen"); !errors.Is(err, ErrFeedbackNotFound) {
		t.Fatalf("unknown key = %v", err)
	}
}
