// Package services defines the business logic for accounts, projects,
// feedback, and the widget contract. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages, API error codes, or HTTP statuses
// is performed at the handler layer.
package services

import "errors"

// Account-related errors.
var (
	// ErrAccountNotFound indicates that the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEmailTaken is returned when signup is attempted with an email that
	// is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on signin when the email is unknown
	// or the password does not match. The two cases are deliberately not
	// distinguished.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNameTooShort is returned when a profile name is shorter than two
	// characters.
	ErrNameTooShort = errors.New("name must be at least 2 characters")

	// ErrPasswordTooShort is returned when a password is shorter than eight
	// characters.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")

	// ErrInvalidStep is returned when an onboarding update names an unknown
	// step or status.
	ErrInvalidStep = errors.New("unknown onboarding step")
)

// Project-related errors.
var (
	// ErrProjectNotFound indicates that the requested project does not exist
	// or is not accessible to the current account.
	ErrProjectNotFound = errors.New("project not found")

	// ErrEmptyProjectName is returned when a project is created or renamed
	// with a blank name.
	ErrEmptyProjectName = errors.New("project name is empty")

	// ErrInvalidPattern is returned when a widget URL pattern entry has an
	// empty pattern or a type other than include/exclude.
	ErrInvalidPattern = errors.New("url pattern must be non-empty with type include or exclude")

	// ErrInvalidCollectEmail is returned when the collectEmail setting is
	// not one of off, optional, required.
	ErrInvalidCollectEmail = errors.New("collectEmail must be off, optional, or required")
)

// Feedback- and submission-related errors.
var (
	// ErrFeedbackNotFound indicates that the requested feedback item does
	// not exist or belongs to another account's project.
	ErrFeedbackNotFound = errors.New("feedback not found")

	// ErrEmptyMessage is returned when a submission or reply contains an
	// empty message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a message exceeds the configured
	// rune limit.
	ErrMessageTooLong = errors.New("message too long")

	// ErrInvalidCategory is returned when a category is outside the
	// enumerated set.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidPriority is returned when a priority is outside the
	// enumerated set.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidTransition is returned when a status update would move a
	// feedback item backwards in its lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrEmailRequired is returned when a project requires reporter emails
	// and the submission omits one.
	ErrEmailRequired = errors.New("email is required for this project")

	// ErrScreenshotTooLarge is returned when a base64 screenshot payload
	// exceeds the configured cap.
	ErrScreenshotTooLarge = errors.New("screenshot payload too large")

	// ErrCapabilityDisabled is returned when a submission carries a
	// screenshot or replay payload the project's configuration or tier does
	// not allow.
	ErrCapabilityDisabled = errors.New("capability not enabled for this project")
)
