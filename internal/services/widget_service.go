// Package services – WidgetService
//
// This file implements the widget-facing contract: configuration fetch for
// /widget/init and report intake for /widget/submit. Both paths are
// unauthenticated (the embed runs on arbitrary third-party pages), so the
// service treats every input as hostile: all validation happens before any
// row is written, capability gates come from the project's configuration and
// the owning account's tier, and the init payload is a read-only projection
// that never includes dashboard-only fields.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/snapback/snapback-backend/internal/domain"
	"github.com/snapback/snapback-backend/internal/repo"
	"github.com/snapback/snapback-backend/internal/storage"
)

// WidgetInitResponse is the per-project configuration served to the embedded
// widget on page load. Read-only from the widget's perspective.
type WidgetInitResponse struct {
	ProjectID string `json:"projectId"`

	Position     string `json:"position"`
	PrimaryColor string `json:"primaryColor"`
	ButtonText   string `json:"buttonText"`
	ShowBranding bool   `json:"showBranding"`

	Categories       []string `json:"categories"`
	CollectEmail     string   `json:"collectEmail"`
	AllowScreenshots bool     `json:"allowScreenshots"`
	AllowReplays     bool     `json:"allowReplays"`

	URLPatterns []domain.URLPattern `json:"urlPatterns"`
	Tier        string              `json:"tier"`
}

// FeedbackSubmission is the payload of one report from the widget.
type FeedbackSubmission struct {
	ProjectID  string                  `json:"projectId"`
	Category   string                  `json:"category"`
	Message    string                  `json:"message"`
	Email      string                  `json:"email,omitempty"`
	Priority   string                  `json:"priority,omitempty"`
	Screenshot string                  `json:"screenshot,omitempty"` // base64, optionally a data URL
	Replay     string                  `json:"replay,omitempty"`     // opaque session-replay reference
	Metadata   domain.FeedbackMetadata `json:"metadata"`
}

// WidgetService implements the widget-facing use-cases.
type WidgetService struct {
	// DB is the database handle.
	DB *gorm.DB
	// Screenshots persists screenshot payloads; nil disables storage.
	Screenshots storage.ScreenshotStore

	// MaxScreenshotKB caps the decoded screenshot size.
	MaxScreenshotKB int
	// MaxMessageRunes caps the report message length.
	MaxMessageRunes int
	// IdempotencyTTL is how long a submission may be replayed by key.
	IdempotencyTTL time.Duration

	// initCache holds WidgetInitResponse values keyed by project ID. Every
	// embed on every page load hits init, so even a short TTL absorbs most
	// of the read traffic.
	initCache *gocache.Cache
}

// NewWidgetService constructs a WidgetService with the given init-config
// cache TTL. A TTL of zero disables caching.
func NewWidgetService(db *gorm.DB, screenshots storage.ScreenshotStore, cacheTTL time.Duration) *WidgetService {
	s := &WidgetService{
		DB:              db,
		Screenshots:     screenshots,
		MaxScreenshotKB: 512,
		MaxMessageRunes: 5000,
		IdempotencyTTL:  24 * time.Hour,
	}
	if cacheTTL > 0 {
		s.initCache = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return s
}

// InvalidateInit drops the cached init config for a project. The dashboard
// calls this after every configuration change so embeds see updates within
// one page load rather than one TTL.
func (s *WidgetService) InvalidateInit(projectID string) {
	if s.initCache != nil {
		s.initCache.Delete(projectID)
	}
}

// Init returns the widget configuration for projectID, or ErrProjectNotFound.
//
// Tier gating is applied here, not in the widget: a free-tier project gets
// AllowReplays forced off regardless of configuration, and branding stays on
// below the business tier. The widget just renders what it is told.
func (s *WidgetService) Init(ctx context.Context, projectID string) (*WidgetInitResponse, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, ErrProjectNotFound
	}

	if s.initCache != nil {
		if v, ok := s.initCache.Get(projectID); ok {
			return v.(*WidgetInitResponse), nil
		}
	}

	p, err := repo.GetProjectByID(ctx, s.DB, projectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	acc, err := repo.GetAccount(ctx, s.DB, p.AccountID)
	if err != nil {
		return nil, err
	}

	resp := &WidgetInitResponse{
		ProjectID:        p.ID,
		Position:         p.Position,
		PrimaryColor:     p.PrimaryColor,
		ButtonText:       p.ButtonText,
		ShowBranding:     p.ShowBranding || acc.Tier != domain.TierBusiness,
		Categories:       p.Categories,
		CollectEmail:     p.CollectEmail,
		AllowScreenshots: p.AllowScreenshots,
		AllowReplays:     p.AllowReplays && acc.Tier != domain.TierFree,
		URLPatterns:      p.URLPatterns,
		Tier:             acc.Tier,
	}
	if len(resp.Categories) == 0 {
		resp.Categories = domain.Categories()
	}

	if s.initCache != nil {
		s.initCache.SetDefault(projectID, resp)
	}
	return resp, nil
}

// Submit validates and persists one feedback report.
//
// Semantics and validation (the server is authoritative even though the
// client runs the same cheap checks):
//   - message must be non-empty and within MaxMessageRunes.
//   - category must be one of the five enumerated values.
//   - priority, when present, must be one of the four values; when omitted
//     it defaults to "medium".
//   - the project must exist (ErrProjectNotFound).
//   - a project with CollectEmail == "required" rejects submissions without
//     an email (ErrEmailRequired).
//   - screenshot and replay payloads are rejected when the project's
//     configuration or tier does not allow them (ErrCapabilityDisabled),
//     and screenshots are size-capped (ErrScreenshotTooLarge).
//
// No retry is performed here; each call is one insert. Callers that retry
// must supply an Idempotency-Key so the handler can replay instead.
func (s *WidgetService) Submit(ctx context.Context, sub FeedbackSubmission) (*domain.Feedback, error) {
	ctx, span := otel.Tracer("widget").Start(ctx, "widget.submit")
	defer span.End()

	sub.Message = strings.TrimSpace(sub.Message)
	if sub.Message == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(sub.Message) > s.MaxMessageRunes {
		return nil, ErrMessageTooLong
	}
	if !domain.ValidCategory(sub.Category) {
		return nil, ErrInvalidCategory
	}
	if sub.Priority == "" {
		sub.Priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(sub.Priority) {
		return nil, ErrInvalidPriority
	}

	cfg, err := s.Init(ctx, sub.ProjectID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("project.id", cfg.ProjectID))

	if cfg.CollectEmail == "required" && strings.TrimSpace(sub.Email) == "" {
		return nil, ErrEmailRequired
	}
	if sub.Replay != "" && !cfg.AllowReplays {
		return nil, ErrCapabilityDisabled
	}

	var screenshotRef string
	if sub.Screenshot != "" {
		if !cfg.AllowScreenshots {
			return nil, ErrCapabilityDisabled
		}
		data, err := storage.DecodeBase64(sub.Screenshot)
		if err != nil {
			return nil, ErrCapabilityDisabled
		}
		if s.MaxScreenshotKB > 0 && len(data) > s.MaxScreenshotKB<<10 {
			return nil, ErrScreenshotTooLarge
		}
		if s.Screenshots != nil {
			if screenshotRef, err = s.Screenshots.Save(ctx, cfg.ProjectID, data); err != nil {
				return nil, err
			}
		}
	}

	fb := &domain.Feedback{
		ProjectID:     cfg.ProjectID,
		Category:      sub.Category,
		Message:       sub.Message,
		Email:         strings.TrimSpace(sub.Email),
		Priority:      sub.Priority,
		Status:        domain.StatusNew,
		ScreenshotRef: screenshotRef,
		ReplayRef:     sub.Replay,
		Metadata:      sub.Metadata,
	}
	return repo.CreateFeedback(ctx, s.DB, fb)
}

// RecordSubmission stores the idempotency record binding key to the created
// feedback row. A duplicate key is not an error: the concurrent winner's
// record stands.
func (s *WidgetService) RecordSubmission(ctx context.Context, projectID, key, feedbackID string, status int) error {
	if key == "" {
		return nil
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, projectID, key, feedbackID, status, s.IdempotencyTTL)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// Replay returns the previously created feedback row for (projectID, key),
// or ErrFeedbackNotFound when the record expired or never existed.
func (s *WidgetService) Replay(ctx context.Context, projectID, key string) (*domain.Feedback, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, projectID, key, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, err
	}
	fb, err := repo.GetFeedback(ctx, s.DB, rec.FeedbackID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, err
	}
	return fb, nil
}
