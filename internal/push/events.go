// Package push delivers real-time events to connected owners over websockets.
package push

// Event names pushed to connected clients.
const (
	EventGenerationStarted   = "generation_started"
	EventGenerationCompleted = "generation_completed"
	EventUsageWarning        = "usage_warning"
	EventUsageLimitWarning   = "usage_limit_warning"
	EventUsageLimitExceeded  = "usage_limit_exceeded"
	EventTrialStarted        = "trial_started"
	EventTrialExpirationSoon = "trial_expiration_warning"
	EventSubscriptionUpdated = "subscription_updated"
)
