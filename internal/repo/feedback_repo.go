// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Feedback
// and FeedbackReply models.
//
// The repository follows a "thin" approach: it performs persistence and
// simple query composition, leaving business rules (status transitions,
// submission validation, tier gating) to the services package.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapback/snapback-backend/internal/domain"
)

// FeedbackFilter narrows feedback listings. Zero values mean "no filter".
// Query performs a case-insensitive substring match on the message text.
type FeedbackFilter struct {
	Status   string
	Category string
	Priority string
	Query    string
}

func applyFeedbackFilter(q *gorm.DB, f FeedbackFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		q = q.Where("message LIKE ?", "%"+s+"%")
	}
	return q
}

// CreateFeedback inserts a feedback row. The ID is a fresh UUID and
// CreatedAt is set to UTC. Category/priority/status validity is enforced at
// higher layers and by DB check constraints.
func CreateFeedback(ctx context.Context, db *gorm.DB, fb *domain.Feedback) (*domain.Feedback, error) {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	fb.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(fb).Error; err != nil {
		return nil, err
	}
	return fb, nil
}

// GetFeedback fetches one feedback row by ID, or ErrNotFound.
func GetFeedback(ctx context.Context, db *gorm.DB, id string) (*domain.Feedback, error) {
	var fb domain.Feedback
	if err := db.WithContext(ctx).Where("id = ?", id).First(&fb).Error; err != nil {
		return nil, err
	}
	return &fb, nil
}

// CountFeedback returns the number of feedback rows in projectIDs matching
// the filter. The dashboard inbox spans all of an account's projects, so the
// scope is a set of project IDs rather than a single one.
func CountFeedback(ctx context.Context, db *gorm.DB, projectIDs []string, f FeedbackFilter) (int64, error) {
	var total int64
	q := db.WithContext(ctx).
		Model(&domain.Feedback{}).
		Where("project_id IN ?", projectIDs)
	err := applyFeedbackFilter(q, f).Count(&total).Error
	return total, err
}

// ListFeedbackPage returns a page of feedback in projectIDs matching the
// filter, newest first. Use CountFeedback for pagination metadata.
func ListFeedbackPage(ctx context.Context, db *gorm.DB, projectIDs []string, f FeedbackFilter, offset, limit int) ([]domain.Feedback, error) {
	var out []domain.Feedback
	q := db.WithContext(ctx).
		Where("project_id IN ?", projectIDs)
	err := applyFeedbackFilter(q, f).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateFeedback applies column updates to a feedback row. Returns
// ErrNotFound when nothing matched.
func UpdateFeedback(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Feedback{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteFeedback soft-deletes a feedback row, or returns ErrNotFound.
func DeleteFeedback(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Feedback{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateReply inserts an immutable reply row under feedbackID.
func CreateReply(ctx context.Context, db *gorm.DB, feedbackID, message, senderRole, senderEmail string) (*domain.FeedbackReply, error) {
	r := &domain.FeedbackReply{
		ID:          uuid.NewString(),
		FeedbackID:  feedbackID,
		Message:     message,
		SenderRole:  senderRole,
		SenderEmail: senderEmail,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// ListReplies returns all replies for a feedback item in thread order
// (oldest first).
func ListReplies(ctx context.Context, db *gorm.DB, feedbackID string) ([]domain.FeedbackReply, error) {
	var out []domain.FeedbackReply
	err := db.WithContext(ctx).
		Where("feedback_id = ?", feedbackID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
