// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides aggregate/statistics queries for the
// dashboard's project stats panel and for ETag-style conditional responses.
// Each function is context-aware and safe to call from services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/snapback/snapback-backend/internal/domain"
)

// ProjectStats summarizes a project's feedback inbox: totals broken down by
// lifecycle status and by category, plus the timestamp of the most recent
// report.
type ProjectStats struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"byStatus"`
	ByCategory   map[string]int64 `json:"byCategory"`
	LastReportAt *time.Time       `json:"lastReportAt,omitempty"`
}

// GetProjectStats computes aggregate feedback counts for one project. When
// the project has no feedback, the maps are empty (not nil) and LastReportAt
// is nil.
func GetProjectStats(ctx context.Context, db *gorm.DB, projectID string) (*ProjectStats, error) {
	stats := &ProjectStats{
		ByStatus:   make(map[string]int64),
		ByCategory: make(map[string]int64),
	}

	base := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.Feedback{}).Where("project_id = ?", projectID)
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if stats.Total == 0 {
		return stats, nil
	}

	type bucket struct {
		Key string
		N   int64
	}

	var byStatus []bucket
	if err := base().
		Select("status AS key, COUNT(*) AS n").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, b := range byStatus {
		stats.ByStatus[b.Key] = b.N
	}

	var byCategory []bucket
	if err := base().
		Select("category AS key, COUNT(*) AS n").
		Group("category").
		Scan(&byCategory).Error; err != nil {
		return nil, err
	}
	for _, b := range byCategory {
		stats.ByCategory[b.Key] = b.N
	}

	// Latest report (avoid MAX() -> TEXT in SQLite).
	var row struct {
		CreatedAt time.Time
	}
	if err := base().
		Select("created_at").
		Order("created_at DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return nil, err
	}
	stats.LastReportAt = &row.CreatedAt

	return stats, nil
}

// FeedbackStats returns aggregate metadata for feedback across a set of
// projects: the total number of rows and the maximum UpdatedAt timestamp.
// Used for weak ETags on the inbox listing. When there are no rows, the
// returned count is 0 and maxUpdatedAt is nil.
func FeedbackStats(ctx context.Context, db *gorm.DB, projectIDs []string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Feedback{}).Where("project_id IN ?", projectIDs)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
