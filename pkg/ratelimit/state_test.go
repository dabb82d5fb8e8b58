package ratelimit

import (
	"testing"
	"time"
)

func TestState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *State
		maxAge   time.Duration
		expected bool
	}{
		{
			name: "fresh state",
			state: &State{
				LastUpdate: time.Now(),
			},
			maxAge:   5 * time.Minute,
			expected: false,
		},
		{
			name: "stale state",
			state: &State{
				LastUpdate: time.Now().Add(-10 * time.Minute),
			},
			maxAge:   5 * time.Minute,
			expected: true,
		},
		{
			name: "just under max age",
			state: &State{
				LastUpdate: time.Now().Add(-4 * time.Minute),
			},
			maxAge:   5 * time.Minute,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.state.IsStale(tt.maxAge)
			if result != tt.expected {
				t.Errorf("IsStale() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestState_NeedsCriticalBlock(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		expected  bool
	}{
		{
			name:      "well above critical threshold",
			remaining: 50,
			expected:  false,
		},
		{
			name:      "at critical threshold",
			remaining: BudgetThresholdCritical,
			expected:  false,
		},
		{
			name:      "just below critical threshold",
			remaining: BudgetThresholdCritical - 1,
			expected:  true,
		},
		{
			name:      "zero budget remaining",
			remaining: 0,
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &State{
				Remaining: tt.remaining,
			}
			result := state.NeedsCriticalBlock()
			if result != tt.expected {
				t.Errorf("NeedsCriticalBlock() = %v, want %v (remaining=%d)", result, tt.expected, tt.remaining)
			}
		})
	}
}

func TestState_NeedsThrottling(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		expected  bool
	}{
		{
			name:      "healthy state",
			remaining: 50,
			expected:  false,
		},
		{
			name:      "at warning threshold",
			remaining: BudgetThresholdWarning,
			expected:  false,
		},
		{
			name:      "below warning threshold",
			remaining: BudgetThresholdWarning - 1,
			expected:  true,
		},
		{
			name:      "below critical threshold (blocked, not throttled)",
			remaining: BudgetThresholdCritical - 1,
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &State{
				Remaining: tt.remaining,
			}
			result := state.NeedsThrottling()
			if result != tt.expected {
				t.Errorf("NeedsThrottling() = %v, want %v (remaining=%d)", result, tt.expected, tt.remaining)
			}
		})
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	tests := []struct {
		name    string
		resetAt time.Time
		wantMin time.Duration
		wantMax time.Duration
	}{
		{
			name:    "reset in the future",
			resetAt: time.Now().Add(30 * time.Second),
			wantMin: 29 * time.Second,
			wantMax: 31 * time.Second,
		},
		{
			name:    "reset already passed",
			resetAt: time.Now().Add(-10 * time.Second),
			wantMin: 0,
			wantMax: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &State{ResetAt: tt.resetAt}
			got := state.TimeUntilReset()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("TimeUntilReset() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestState_UpdateHealth(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		expected  bool
	}{
		{"healthy budget", BudgetThresholdHealthy, true},
		{"above healthy", 100, true},
		{"below healthy", BudgetThresholdHealthy - 1, false},
		{"zero", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &State{Remaining: tt.remaining}
			state.UpdateHealth()
			if state.IsHealthy != tt.expected {
				t.Errorf("IsHealthy = %v, want %v (remaining=%d)", state.IsHealthy, tt.expected, tt.remaining)
			}
		})
	}
}
