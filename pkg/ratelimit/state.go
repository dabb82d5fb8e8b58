// Package ratelimit implements request-budget tracking and gating for the
// admin API backend. It monitors the X-RateLimit-Remaining and
// X-RateLimit-Reset response headers so every console instance sharing the
// same redis sees one consistent budget.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining      = "admin:rate_limit:remaining"
	RedisKeyResetTimestamp = "admin:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "admin:rate_limit:last_update"
)

// Thresholds for rate limit decisions.
const (
	// BudgetThresholdCritical blocks all requests when the remaining budget
	// falls below this value, leaving headroom for user-initiated saves.
	BudgetThresholdCritical = 5

	// BudgetThresholdWarning applies throttling when the remaining budget
	// falls below this value. Bulk loaders slow down before browsing does.
	BudgetThresholdWarning = 20

	// BudgetThresholdHealthy indicates normal operation.
	// At or above this value no restrictions apply.
	BudgetThresholdHealthy = 50
)

// State represents the current backend rate-limit budget.
// This state is shared across all client instances via Redis.
type State struct {
	// Remaining is the number of requests allowed before the backend starts
	// rejecting with 429. Extracted from the X-RateLimit-Remaining header.
	Remaining int `json:"remaining"`

	// ResetAt is the timestamp when the rate window resets.
	// Calculated from the X-RateLimit-Reset header (seconds until reset).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is the timestamp when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy indicates whether the budget is in a healthy state.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
// Stale state should be refreshed from Redis or response headers.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *State) NeedsCriticalBlock() bool {
	return s.Remaining < BudgetThresholdCritical
}

// NeedsThrottling returns true if requests should be throttled.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < BudgetThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the rate window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on the current budget.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= BudgetThresholdHealthy
}
