// Package services – AccountService
//
// This file implements the AccountService, which manages dashboard accounts:
// signup, signin, profile updates, password changes, and onboarding
// progress. Passwords are hashed with bcrypt; session tokens are issued by
// an injected TokenIssuer so the identity backend stays behind an explicit
// interface rather than leaking an SDK shape into the transport layer.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/snapback/snapback-backend/internal/domain"
	"github.com/snapback/snapback-backend/internal/repo"
)

// TokenIssuer mints and verifies session tokens for accounts. The concrete
// implementation lives in internal/auth; services only see this contract.
type TokenIssuer interface {
	// Issue returns a signed token identifying accountID.
	Issue(accountID string) (token string, expiresAt time.Time, err error)
}

// OnboardingStatus is one entry of the onboarding map returned to the
// dashboard: the step's terminal status and when it was reached.
type OnboardingStatus struct {
	Status      string    `json:"status"`
	CompletedAt time.Time `json:"completedAt"`
}

// Session is the result of a successful signup or signin.
type Session struct {
	Account   *domain.Account `json:"account"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// AccountService implements the account use-cases. It is safe for
// concurrent use.
type AccountService struct {
	// DB is the database handle used for all account operations.
	DB *gorm.DB
	// Tokens issues session tokens on signup/signin.
	Tokens TokenIssuer
	// BcryptCost overrides the hashing cost; zero means bcrypt.DefaultCost.
	// Tests lower it to keep hashing fast.
	BcryptCost int
}

func (s *AccountService) cost() int {
	if s.BcryptCost > 0 {
		return s.BcryptCost
	}
	return bcrypt.DefaultCost
}

// Signup registers a new account and returns a live session.
//
// Validation: email must be non-empty and contain '@'; name must be at
// least 2 runes; password at least 8 runes. A duplicate email yields
// ErrEmailTaken.
func (s *AccountService) Signup(ctx context.Context, email, password, name string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidCredentials
	}
	if utf8.RuneCountInString(name) < 2 {
		return nil, ErrNameTooShort
	}
	if utf8.RuneCountInString(password) < 8 {
		return nil, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return nil, err
	}

	acc, err := repo.CreateAccount(ctx, s.DB, email, string(hash), name)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return s.session(acc)
}

// Signin verifies credentials and returns a live session. Unknown emails and
// wrong passwords both map to ErrInvalidCredentials.
func (s *AccountService) Signin(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	acc, err := repo.GetAccountByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(acc)
}

func (s *AccountService) session(acc *domain.Account) (*Session, error) {
	token, exp, err := s.Tokens.Issue(acc.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Account: acc, Token: token, ExpiresAt: exp}, nil
}

// Profile returns the account for accountID, or ErrAccountNotFound.
func (s *AccountService) Profile(ctx context.Context, accountID string) (*domain.Account, error) {
	acc, err := repo.GetAccount(ctx, s.DB, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acc, nil
}

// UpdateProfile changes the display name. Names shorter than 2 runes are
// rejected with ErrNameTooShort.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID, name string) (*domain.Account, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < 2 {
		return nil, ErrNameTooShort
	}
	if err := repo.UpdateAccount(ctx, s.DB, accountID, map[string]any{"name": name}); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return s.Profile(ctx, accountID)
}

// ChangePassword verifies the current password and stores a hash of the new
// one. A mismatched current password yields ErrInvalidCredentials.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, current, next string) error {
	if utf8.RuneCountInString(next) < 8 {
		return ErrPasswordTooShort
	}
	acc, err := repo.GetAccount(ctx, s.DB, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost())
	if err != nil {
		return err
	}
	return repo.UpdateAccount(ctx, s.DB, accountID, map[string]any{"password_hash": string(hash)})
}

// Onboarding returns the account's step map. Steps never reached are simply
// absent from the map.
func (s *AccountService) Onboarding(ctx context.Context, accountID string) (map[string]OnboardingStatus, error) {
	rows, err := repo.ListOnboardingSteps(ctx, s.DB, accountID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]OnboardingStatus, len(rows))
	for _, r := range rows {
		out[r.Step] = OnboardingStatus{Status: r.Status, CompletedAt: r.CompletedAt}
	}
	return out, nil
}

// AdvanceOnboarding records that a step was completed or skipped. Progress
// is forward-only: recording an already-recorded step is a no-op and the
// original entry is kept.
func (s *AccountService) AdvanceOnboarding(ctx context.Context, accountID, step, status string) (map[string]OnboardingStatus, error) {
	if !domain.ValidStep(step) {
		return nil, ErrInvalidStep
	}
	if status != "completed" && status != "skipped" {
		return nil, ErrInvalidStep
	}
	if _, err := repo.UpsertOnboardingStep(ctx, s.DB, accountID, step, status); err != nil {
		return nil, err
	}
	return s.Onboarding(ctx, accountID)
}
