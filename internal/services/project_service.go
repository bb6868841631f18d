// Package services – ProjectService
//
// This file implements the ProjectService, which manages the lifecycle of
// projects and their widget configuration. It validates names and URL
// patterns, enforces account ownership, and coordinates repository
// operations for creating, listing (with pagination), updating, and
// API-key rotation.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/snapback/snapback-backend/internal/domain"
	"github.com/snapback/snapback-backend/internal/repo"
)

// ProjectService provides project-level operations. It enforces naming and
// pattern rules and ensures ownership constraints.
type ProjectService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// NameMaxLen caps stored project names by rune length.
	NameMaxLen int

	titler cases.Caser
}

// NewProjectService constructs a ProjectService with sane defaults.
func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{
		DB:         db,
		NameMaxLen: 200,
		titler:     cases.Title(language.English),
	}
}

// Create inserts a new project owned by accountID. When name is blank it is
// derived from the domain ("feedback.acme.com" → "Acme"); when both are
// blank the creation is rejected.
func (s *ProjectService) Create(ctx context.Context, accountID, name, siteDomain string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	siteDomain = normalizeDomain(siteDomain)
	if name == "" {
		name = s.nameFromDomain(siteDomain)
	}
	if name == "" {
		return nil, ErrEmptyProjectName
	}

	p := &domain.Project{
		AccountID:    accountID,
		Name:         s.clip(name),
		Domain:       siteDomain,
		Position:     "bottom-right",
		PrimaryColor: "#6366f1",
		ButtonText:   "Feedback",
		ShowBranding: true,
		Categories:   domain.Categories(),
		CollectEmail: "optional",

		AllowScreenshots: true,
	}
	return repo.CreateProject(ctx, s.DB, p)
}

// ListPage returns one page of the account's projects plus the total count.
func (s *ProjectService) ListPage(ctx context.Context, accountID string, page, pageSize int) ([]domain.Project, int64, error) {
	total, err := repo.CountProjects(ctx, s.DB, accountID)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListProjectsPage(ctx, s.DB, accountID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get fetches one project owned by accountID, or ErrProjectNotFound.
func (s *ProjectService) Get(ctx context.Context, accountID, projectID string) (*domain.Project, error) {
	p, err := repo.GetProject(ctx, s.DB, projectID, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

// ProjectUpdate carries the mutable project fields. Nil pointers mean
// "leave unchanged".
type ProjectUpdate struct {
	Name             *string
	Domain           *string
	Position         *string
	PrimaryColor     *string
	ButtonText       *string
	ShowBranding     *bool
	Categories       *[]string
	CollectEmail     *string
	AllowScreenshots *bool
	AllowReplays     *bool
	URLPatterns      *[]domain.URLPattern
}

// Update applies a partial update to a project owned by accountID and
// returns the refreshed row. URL patterns are validated before anything is
// written.
func (s *ProjectService) Update(ctx context.Context, accountID, projectID string, upd ProjectUpdate) (*domain.Project, error) {
	updates := map[string]any{}
	if upd.Name != nil {
		n := strings.TrimSpace(*upd.Name)
		if n == "" {
			return nil, ErrEmptyProjectName
		}
		updates["name"] = s.clip(n)
	}
	if upd.Domain != nil {
		updates["domain"] = normalizeDomain(*upd.Domain)
	}
	if upd.Position != nil {
		updates["position"] = *upd.Position
	}
	if upd.PrimaryColor != nil {
		updates["primary_color"] = *upd.PrimaryColor
	}
	if upd.ButtonText != nil {
		updates["button_text"] = *upd.ButtonText
	}
	if upd.ShowBranding != nil {
		updates["show_branding"] = *upd.ShowBranding
	}
	if upd.Categories != nil {
		for _, c := range *upd.Categories {
			if !domain.ValidCategory(c) {
				return nil, ErrInvalidCategory
			}
		}
		// Updates goes through a column map, not the model, so the JSON
		// serializer on the field does not run. Marshal here instead.
		blob, err := json.Marshal(*upd.Categories)
		if err != nil {
			return nil, err
		}
		updates["categories"] = string(blob)
	}
	if upd.CollectEmail != nil {
		switch *upd.CollectEmail {
		case "off", "optional", "required":
			updates["collect_email"] = *upd.CollectEmail
		default:
			return nil, ErrInvalidCollectEmail
		}
	}
	if upd.AllowScreenshots != nil {
		updates["allow_screenshots"] = *upd.AllowScreenshots
	}
	if upd.AllowReplays != nil {
		updates["allow_replays"] = *upd.AllowReplays
	}
	if upd.URLPatterns != nil {
		for _, p := range *upd.URLPatterns {
			if strings.TrimSpace(p.Pattern) == "" {
				return nil, ErrInvalidPattern
			}
			if p.Type != domain.PatternInclude && p.Type != domain.PatternExclude {
				return nil, ErrInvalidPattern
			}
		}
		blob, err := json.Marshal(*upd.URLPatterns)
		if err != nil {
			return nil, err
		}
		updates["url_patterns"] = string(blob)
	}
	if len(updates) == 0 {
		return s.Get(ctx, accountID, projectID)
	}

	if err := repo.UpdateProject(ctx, s.DB, projectID, accountID, updates); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return s.Get(ctx, accountID, projectID)
}

// RegenerateKey rotates the project's API key and returns the new key.
// Existing embeds keep working only until their next init, so the dashboard
// warns before calling this.
func (s *ProjectService) RegenerateKey(ctx context.Context, accountID, projectID string) (string, error) {
	key, err := repo.RegenerateAPIKey(ctx, s.DB, projectID, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrProjectNotFound
		}
		return "", err
	}
	return key, nil
}

// Delete soft-deletes a project owned by accountID.
func (s *ProjectService) Delete(ctx context.Context, accountID, projectID string) error {
	if err := repo.DeleteProject(ctx, s.DB, projectID, accountID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrProjectNotFound
		}
		return err
	}
	return nil
}

// Stats returns the aggregate feedback stats for one project owned by
// accountID.
func (s *ProjectService) Stats(ctx context.Context, accountID, projectID string) (*repo.ProjectStats, error) {
	if _, err := s.Get(ctx, accountID, projectID); err != nil {
		return nil, err
	}
	return repo.GetProjectStats(ctx, s.DB, projectID)
}

// ProjectIDs returns the IDs of every project owned by accountID. The inbox
// endpoints use it to scope cross-project feedback queries.
func (s *ProjectService) ProjectIDs(ctx context.Context, accountID string) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).
		Model(&domain.Project{}).
		Where("account_id = ?", accountID).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *ProjectService) clip(name string) string {
	max := s.NameMaxLen
	if max <= 0 {
		max = 200
	}
	if utf8.RuneCountInString(name) <= max {
		return name
	}
	runes := []rune(name)
	return string(runes[:max])
}

// nameFromDomain derives a readable project name from a site domain:
// "feedback.acme-corp.com" becomes "Acme Corp".
func (s *ProjectService) nameFromDomain(d string) string {
	if d == "" {
		return ""
	}
	labels := strings.Split(d, ".")
	// Take the registrable label: last-but-one when a TLD is present.
	label := labels[0]
	if len(labels) >= 2 {
		label = labels[len(labels)-2]
	}
	label = strings.NewReplacer("-", " ", "_", " ").Replace(label)
	return strings.TrimSpace(s.titler.String(label))
}

func normalizeDomain(d string) string {
	d = strings.TrimSpace(strings.ToLower(d))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	return strings.TrimSuffix(d, "/")
}
