// Package domain defines the persistence models and the shared vocabulary of
// the feedback contract: category/priority/status enumerations, onboarding
// step names, subscription tiers, and the rate-limit policy constants that
// both the HTTP layer and the widget client must agree on.
package domain

// Feedback categories offered by the widget.
const (
	CategoryBug         = "bug"
	CategoryFeature     = "feature"
	CategoryImprovement = "improvement"
	CategoryQuestion    = "question"
	CategoryOther       = "other"
)

// Feedback priorities. PriorityMedium is the default when a submission omits
// the field.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Feedback lifecycle statuses. Transitions are forward-only:
// new → in_progress → resolved|closed; archived is reachable from any state.
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
	StatusArchived   = "archived"
)

// Onboarding step names. The set is fixed; progress only moves forward.
const (
	StepWelcome       = "welcome"
	StepCreateProject = "createProject"
	StepInstallWidget = "installWidget"
)

// Subscription tiers. The tier gates widget capabilities: session replay
// requires at least TierPro, branding removal requires TierBusiness.
const (
	TierFree     = "free"
	TierPro      = "pro"
	TierBusiness = "business"
)

// URL pattern types for the widget visibility policy.
const (
	PatternInclude = "include"
	PatternExclude = "exclude"
)

// Reply sender roles.
const (
	SenderAdmin = "admin"
	SenderUser  = "user"
)

// Rate-limit policy. Both limits are sliding 60-second windows keyed by the
// originating identity (account for dashboard calls, client IP for widget
// calls). The widget submit limit is deliberately strict: it is the only
// unauthenticated write path.
const (
	WidgetSubmitLimit = 5   // submissions per window per identity
	APIRequestLimit   = 100 // general API calls per window per identity
	RateWindowSeconds = 60
)

// Categories returns the full ordered category set.
func Categories() []string {
	return []string{CategoryBug, CategoryFeature, CategoryImprovement, CategoryQuestion, CategoryOther}
}

// ValidCategory reports whether c is one of the five feedback categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryBug, CategoryFeature, CategoryImprovement, CategoryQuestion, CategoryOther:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the four feedback priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusInProgress, StatusResolved, StatusClosed, StatusArchived:
		return true
	}
	return false
}

// ValidStep reports whether s is a known onboarding step name.
func ValidStep(s string) bool {
	switch s {
	case StepWelcome, StepCreateProject, StepInstallWidget:
		return true
	}
	return false
}

// CanTransition reports whether a feedback item may move from status `from`
// to status `to`. Transitions are monotonic forward; there is no reopen.
// Archiving is allowed from any state, and a no-op transition is rejected so
// the service layer can surface it as a validation failure.
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	if to == StatusArchived {
		return from != StatusArchived
	}
	switch from {
	case StatusNew:
		return to == StatusInProgress || to == StatusResolved || to == StatusClosed
	case StatusInProgress:
		return to == StatusResolved || to == StatusClosed
	default:
		return false
	}
}
