// Package services – FeedbackService
//
// This file implements the FeedbackService, which governs the dashboard side
// of the feedback inbox: listing across an account's projects, status and
// priority updates (with forward-only lifecycle enforcement), internal
// notes, replies, and deletion. Ownership checks run inside the same
// transaction as the mutation so a feedback item can never be modified
// through a foreign account.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/snapback/snapback-backend/internal/domain"
	"github.com/snapback/snapback-backend/internal/repo"
)

// FeedbackService implements the dashboard use-cases around feedback.
type FeedbackService struct {
	// DB is the database handle used for all feedback operations.
	DB *gorm.DB
	// MaxMessageRunes caps reply message length. Zero means no cap.
	MaxMessageRunes int
}

// getOwned loads a feedback row and verifies it belongs to one of the
// account's projects, all within the given handle (which may be a tx).
func (s *FeedbackService) getOwned(ctx context.Context, db *gorm.DB, accountID, feedbackID string) (*domain.Feedback, error) {
	fb, err := repo.GetFeedback(ctx, db, feedbackID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, err
	}
	if _, err := repo.GetProject(ctx, db, fb.ProjectID, accountID); err != nil {
		// Either the project is gone or it is owned by someone else; both
		// read as "not found" to the caller.
		return nil, ErrFeedbackNotFound
	}
	return fb, nil
}

// Get returns one feedback item owned (via its project) by accountID.
func (s *FeedbackService) Get(ctx context.Context, accountID, feedbackID string) (*domain.Feedback, error) {
	return s.getOwned(ctx, s.DB, accountID, feedbackID)
}

// ListPage returns one page of feedback across the given projects with the
// total count. projectIDs must already be scoped to the calling account.
func (s *FeedbackService) ListPage(ctx context.Context, projectIDs []string, filter repo.FeedbackFilter, page, pageSize int) ([]domain.Feedback, int64, error) {
	if len(projectIDs) == 0 {
		return []domain.Feedback{}, 0, nil
	}
	total, err := repo.CountFeedback(ctx, s.DB, projectIDs, filter)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListFeedbackPage(ctx, s.DB, projectIDs, filter, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// FeedbackUpdate carries the mutable dashboard-side feedback fields. Nil
// pointers mean "leave unchanged".
type FeedbackUpdate struct {
	Status        *string
	Priority      *string
	InternalNotes *string
}

// Update applies a dashboard edit to a feedback item.
//
// Semantics:
//   - Status changes must follow the forward-only lifecycle
//     (new → in_progress → resolved|closed, archived from anywhere);
//     anything else yields ErrInvalidTransition.
//   - Priority must be one of the four enumerated values.
//   - The ownership check and the write run in one transaction.
func (s *FeedbackService) Update(ctx context.Context, accountID, feedbackID string, upd FeedbackUpdate) (*domain.Feedback, error) {
	var out *domain.Feedback
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fb, err := s.getOwned(ctx, tx, accountID, feedbackID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if upd.Status != nil {
			if !domain.ValidStatus(*upd.Status) {
				return ErrInvalidTransition
			}
			if !domain.CanTransition(fb.Status, *upd.Status) {
				return ErrInvalidTransition
			}
			updates["status"] = *upd.Status
		}
		if upd.Priority != nil {
			if !domain.ValidPriority(*upd.Priority) {
				return ErrInvalidPriority
			}
			updates["priority"] = *upd.Priority
		}
		if upd.InternalNotes != nil {
			updates["internal_notes"] = strings.TrimSpace(*upd.InternalNotes)
		}
		if len(updates) == 0 {
			out = fb
			return nil
		}

		if err := repo.UpdateFeedback(ctx, tx, feedbackID, updates); err != nil {
			return err
		}
		out, err = repo.GetFeedback(ctx, tx, feedbackID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a feedback item owned by accountID.
func (s *FeedbackService) Delete(ctx context.Context, accountID, feedbackID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.getOwned(ctx, tx, accountID, feedbackID); err != nil {
			return err
		}
		return repo.DeleteFeedback(ctx, tx, feedbackID)
	})
}

// Reply appends an admin reply to a feedback thread. Replies are immutable
// once created.
func (s *FeedbackService) Reply(ctx context.Context, accountID, feedbackID, message, senderEmail string) (*domain.FeedbackReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(message) > s.MaxMessageRunes {
		return nil, ErrMessageTooLong
	}

	var out *domain.FeedbackReply
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.getOwned(ctx, tx, accountID, feedbackID); err != nil {
			return err
		}
		var err error
		out, err = repo.CreateReply(ctx, tx, feedbackID, message, domain.SenderAdmin, senderEmail)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Replies returns the thread for a feedback item owned by accountID, oldest
// first.
func (s *FeedbackService) Replies(ctx context.Context, accountID, feedbackID string) ([]domain.FeedbackReply, error) {
	if _, err := s.getOwned(ctx, s.DB, accountID, feedbackID); err != nil {
		return nil, err
	}
	return repo.ListReplies(ctx, s.DB, feedbackID)
}
