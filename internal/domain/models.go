// Package domain defines the persistence models for accounts, projects,
// feedback, and replies. These types are mapped with GORM and form the core
// data layer of the feedback-collection backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Account represents a dashboard user (a tenant). Accounts own projects and
// carry the subscription tier that gates widget capabilities.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique login identifier.
//   - PasswordHash: bcrypt hash; never serialized.
//   - Name: display name (min 2 chars, enforced at the service layer).
//   - Tier: subscription tier ("free", "pro", "business").
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Account struct {
	ID           string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Email        string         `json:"email"      gorm:"type:varchar(320);not null;uniqueIndex:ux_account_email"`
	PasswordHash string         `json:"-"          gorm:"type:varchar(255);not null"`
	Name         string         `json:"name"       gorm:"type:varchar(120);not null"`
	Tier         string         `json:"tier"       gorm:"type:varchar(16);not null;default:'free';check:tier IN ('free','pro','business')"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// URLPattern is one entry of a project's widget visibility configuration.
// Pattern is a glob where '*' matches any run of characters; Type is either
// "include" or "exclude". Patterns are stored in authoring order because the
// last matching entry wins.
type URLPattern struct {
	Pattern string `json:"pattern"`
	Type    string `json:"type"`
}

// Project represents a tenant's registered site or app. It owns feedback,
// the widget configuration served by /widget/init, and the API key embedded
// in the host page's script tag.
//
// Widget configuration lives inline on the project row: it is read on every
// widget init and always consumed as a whole, so a separate aggregate would
// only add a join.
type Project struct {
	ID        string `json:"id"         gorm:"type:char(36);primaryKey"`
	AccountID string `json:"account_id" gorm:"type:char(36);not null;index:idx_account_projects"`
	Name      string `json:"name"       gorm:"type:varchar(200);not null"`
	Domain    string `json:"domain"     gorm:"type:varchar(255)"`
	APIKey    string `json:"api_key"    gorm:"type:char(36);not null;uniqueIndex:ux_project_api_key"`

	// Widget appearance. The bool columns carry no schema default: GORM
	// omits zero-valued fields from the INSERT when a default tag is
	// present, so an explicit false would be lost.
	Position     string `json:"position"      gorm:"type:varchar(16);not null;default:'bottom-right'"`
	PrimaryColor string `json:"primary_color" gorm:"type:varchar(16);not null;default:'#6366f1'"`
	ButtonText   string `json:"button_text"   gorm:"type:varchar(60);not null;default:'Feedback'"`
	ShowBranding bool   `json:"show_branding" gorm:"not null"`

	// Widget capabilities.
	Categories       []string `json:"categories"        gorm:"serializer:json"`
	CollectEmail     string   `json:"collect_email"     gorm:"type:varchar(16);not null;default:'optional';check:collect_email IN ('off','optional','required')"`
	AllowScreenshots bool     `json:"allow_screenshots" gorm:"not null"`
	AllowReplays     bool     `json:"allow_replays"     gorm:"not null"`

	// Visibility rules, evaluated in order by the widget runtime.
	URLPatterns []URLPattern `json:"url_patterns" gorm:"serializer:json"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Account is the owning tenant. Projects are cascade-deleted with it.
	Account Account `json:"-" gorm:"foreignKey:AccountID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Project.
func (Project) TableName() string { return "projects" }

// FeedbackMetadata is the capture context attached to every submission:
// where the report came from and what the reporter's environment looked
// like. Stored as a JSON blob; the backend never queries individual fields.
type FeedbackMetadata struct {
	URL              string         `json:"url"`
	UserAgent        string         `json:"userAgent"`
	ScreenWidth      int            `json:"screenWidth"`
	ScreenHeight     int            `json:"screenHeight"`
	DevicePixelRatio float64        `json:"devicePixelRatio"`
	Timestamp        time.Time      `json:"timestamp"`
	SessionID        string         `json:"sessionId,omitempty"`
	CustomData       map[string]any `json:"customData,omitempty"`
}

// Feedback is one user-submitted report, owned by a project.
//
// InternalNotes is dashboard-only commentary and must never reach the
// widget or the reporting end user; widget-facing payloads are produced via
// WidgetView / the submit response, which exclude it by construction.
type Feedback struct {
	ID        string `json:"id"         gorm:"type:char(36);primaryKey"`
	ProjectID string `json:"project_id" gorm:"type:char(36);not null;index:idx_project_feedback,priority:1"`
	Category  string `json:"category"   gorm:"type:varchar(16);not null;check:category IN ('bug','feature','improvement','question','other')"`
	Message   string `json:"message"    gorm:"type:text;not null"`
	Email     string `json:"email,omitempty"    gorm:"type:varchar(320)"`
	Priority  string `json:"priority"   gorm:"type:varchar(16);not null;default:'medium';check:priority IN ('low','medium','high','critical')"`
	Status    string `json:"status"     gorm:"type:varchar(16);not null;default:'new';check:status IN ('new','in_progress','resolved','closed','archived')"`

	ScreenshotRef string `json:"screenshot_ref,omitempty" gorm:"type:varchar(255)"`
	ReplayRef     string `json:"replay_ref,omitempty"     gorm:"type:varchar(255)"`

	Metadata FeedbackMetadata `json:"metadata" gorm:"serializer:json"`

	InternalNotes string `json:"internal_notes,omitempty" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_project_feedback,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Project is the owning tenant site. Feedback is cascade-deleted with it.
	Project Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }

// FeedbackView is the widget-facing projection of a Feedback row. It omits
// InternalNotes and the dashboard lifecycle fields so nothing operator-only
// can leak through the public submission channel.
type FeedbackView struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`
}

// WidgetView returns the reporter-safe projection of f.
func (f Feedback) WidgetView() FeedbackView {
	return FeedbackView{
		ID:        f.ID,
		Category:  f.Category,
		Message:   f.Message,
		Priority:  f.Priority,
		CreatedAt: f.CreatedAt,
	}
}

// FeedbackReply is a threaded message on a feedback item, authored either by
// a dashboard operator ("admin") or the reporting end user ("user").
// Replies are immutable once created, so there is no UpdatedAt column.
type FeedbackReply struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	FeedbackID  string    `json:"feedback_id" gorm:"type:char(36);not null;index:idx_feedback_replies,priority:1"`
	Message     string    `json:"message"     gorm:"type:text;not null"`
	SenderRole  string    `json:"sender_role" gorm:"type:varchar(8);not null;check:sender_role IN ('admin','user')"`
	SenderEmail string    `json:"sender_email" gorm:"type:varchar(320)"`
	CreatedAt   time.Time `json:"created_at"  gorm:"index:idx_feedback_replies,priority:2"`

	// Feedback is the parent report. Replies are cascade-deleted with it.
	Feedback Feedback `json:"-" gorm:"foreignKey:FeedbackID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for FeedbackReply.
func (FeedbackReply) TableName() string { return "feedback_replies" }

// OnboardingStep records forward progress through the fixed onboarding flow
// (welcome, createProject, installWidget). Absence of a row means the step
// has not been reached; rows are never removed.
type OnboardingStep struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	AccountID   string    `json:"account_id"   gorm:"type:char(36);not null;uniqueIndex:ux_onboarding_account_step,priority:1"`
	Step        string    `json:"step"         gorm:"type:varchar(32);not null;uniqueIndex:ux_onboarding_account_step,priority:2;check:step IN ('welcome','createProject','installWidget')"`
	Status      string    `json:"status"       gorm:"type:varchar(16);not null;check:status IN ('completed','skipped')"`
	CompletedAt time.Time `json:"completed_at"`
}

// TableName returns the database table name for OnboardingStep.
func (OnboardingStep) TableName() string { return "onboarding_steps" }
