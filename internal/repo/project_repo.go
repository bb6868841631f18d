// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Project
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a project is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapback/snapback-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateProject inserts a new Project row owned by accountID. The project ID
// and API key are randomly generated UUIDs, and CreatedAt is set to UTC.
// Widget configuration is stored exactly as the caller populated p; the
// service layer owns the defaults.
func CreateProject(ctx context.Context, db *gorm.DB, p *domain.Project) (*domain.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.APIKey == "" {
		p.APIKey = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// CountProjects returns the total number of projects owned by accountID.
func CountProjects(ctx context.Context, db *gorm.DB, accountID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("account_id = ?", accountID).
		Count(&total).Error
	return total, err
}

// ListProjectsPage returns a paginated slice of projects for accountID,
// ordered by creation time descending. Use CountProjects to obtain the total
// for pagination metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListProjectsPage(ctx context.Context, db *gorm.DB, accountID string, offset, limit int) ([]domain.Project, error) {
	var out []domain.Project
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetProject fetches a single project by its ID and owner (accountID).
// If the record does not exist, it returns ErrNotFound.
func GetProject(ctx context.Context, db *gorm.DB, id, accountID string) (*domain.Project, error) {
	var p domain.Project
	err := db.WithContext(ctx).
		Where("id = ? AND account_id = ?", id, accountID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProjectByID fetches a project by ID alone. The widget init path uses it:
// embeds know only the projectId from the script tag, not the owning account.
func GetProjectByID(ctx context.Context, db *gorm.DB, id string) (*domain.Project, error) {
	var p domain.Project
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProject applies the given column updates to a project owned by
// accountID. If no rows are affected (project missing or not owned), it
// returns ErrNotFound.
func UpdateProject(ctx context.Context, db *gorm.DB, id, accountID string, updates map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ? AND account_id = ?", id, accountID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RegenerateAPIKey replaces the project's API key with a fresh UUID and
// returns the new key. Ownership is enforced; a missing or foreign project
// yields ErrNotFound.
func RegenerateAPIKey(ctx context.Context, db *gorm.DB, id, accountID string) (string, error) {
	key := uuid.NewString()
	res := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ? AND account_id = ?", id, accountID).
		Update("api_key", key)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", gorm.ErrRecordNotFound
	}
	return key, nil
}

// DeleteProject soft-deletes a project owned by accountID. Returns
// ErrNotFound when nothing matched.
func DeleteProject(ctx context.Context, db *gorm.DB, id, accountID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND account_id = ?", id, accountID).
		Delete(&domain.Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
