// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Account
// and OnboardingStep models.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapback/snapback-backend/internal/domain"
)

// ErrDuplicate indicates a unique-constraint violation (e.g. an email or an
// idempotency key that already exists).
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation detects unique-constraint violations across drivers that
// may not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}

// CreateAccount inserts a new account row. Returns ErrDuplicate when the
// email is already registered.
func CreateAccount(ctx context.Context, db *gorm.DB, email, passwordHash, name string) (*domain.Account, error) {
	a := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Tier:         domain.TierFree,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return a, nil
}

// GetAccount fetches an account by ID, or ErrNotFound.
func GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccountByEmail fetches an account by its unique email, or ErrNotFound.
func GetAccountByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAccount applies column updates to an account. Returns ErrNotFound
// when the account does not exist.
func UpdateAccount(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
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

// UpsertOnboardingStep records forward progress for (accountID, step).
// An existing row keeps its original status and timestamp: onboarding never
// moves backwards and completed steps are never downgraded to skipped.
func UpsertOnboardingStep(ctx context.Context, db *gorm.DB, accountID, step, status string) (*domain.OnboardingStep, error) {
	existing := &domain.OnboardingStep{}
	err := db.WithContext(ctx).
		Where("account_id = ? AND step = ?", accountID, step).
		First(existing).Error
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	rec := &domain.OnboardingStep{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Step:        step,
		Status:      status,
		CompletedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// Concurrent insert of the same step: surface the winner.
		if isUniqueViolation(err) {
			var won domain.OnboardingStep
			if err2 := db.WithContext(ctx).
				Where("account_id = ? AND step = ?", accountID, step).
				First(&won).Error; err2 == nil {
				return &won, nil
			}
		}
		return nil, err
	}
	return rec, nil
}

// ListOnboardingSteps returns all recorded steps for an account. Absent
// steps simply have no row.
func ListOnboardingSteps(ctx context.Context, db *gorm.DB, accountID string) ([]domain.OnboardingStep, error) {
	var out []domain.OnboardingStep
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("completed_at asc").
		Find(&out).Error
	return out, err
}
