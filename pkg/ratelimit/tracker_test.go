package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestTracker_GetState_Default(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewTracker(client, zerolog.Nop())
	ctx := context.Background()

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}

	if !state.IsHealthy {
		t.Error("Default state should be healthy")
	}
	if state.Remaining != 100 {
		t.Errorf("Remaining = %d, want default 100", state.Remaining)
	}
}

func TestTracker_UpdateFromHeaders(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewTracker(client, zerolog.Nop())
	ctx := context.Background()

	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "42")
	headers.Set("X-RateLimit-Reset", "30")

	if err := tracker.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}

	if state.Remaining != 42 {
		t.Errorf("Remaining = %d, want 42", state.Remaining)
	}

	untilReset := state.TimeUntilReset()
	if untilReset < 25*time.Second || untilReset > 31*time.Second {
		t.Errorf("TimeUntilReset = %v, want about 30s", untilReset)
	}
}

func TestTracker_UpdateFromHeaders_MissingHeaders(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewTracker(client, zerolog.Nop())
	ctx := context.Background()

	// No headers at all: not an error, state untouched
	if err := tracker.UpdateFromHeaders(ctx, http.Header{}); err != nil {
		t.Errorf("UpdateFromHeaders with no headers should be a no-op, got %v", err)
	}

	// Remaining without reset is malformed
	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "42")
	if err := tracker.UpdateFromHeaders(ctx, headers); err == nil {
		t.Error("Expected error when X-RateLimit-Reset is missing")
	}

	// Non-numeric remaining is malformed
	headers = http.Header{}
	headers.Set("X-RateLimit-Remaining", "lots")
	headers.Set("X-RateLimit-Reset", "30")
	if err := tracker.UpdateFromHeaders(ctx, headers); err == nil {
		t.Error("Expected error for non-numeric X-RateLimit-Remaining")
	}
}

func TestTracker_ShouldAllowRequest(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		reset     string
		allowed   bool
	}{
		{
			name:      "healthy budget allows",
			remaining: 100,
			reset:     "60",
			allowed:   true,
		},
		{
			name:      "critical budget blocks",
			remaining: BudgetThresholdCritical - 1,
			reset:     "60",
			allowed:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := setupTestRedis(t)
			tracker := NewTracker(client, zerolog.Nop())
			ctx := context.Background()

			headers := http.Header{}
			headers.Set("X-RateLimit-Remaining", strconv.Itoa(tt.remaining))
			headers.Set("X-RateLimit-Reset", tt.reset)
			if err := tracker.UpdateFromHeaders(ctx, headers); err != nil {
				t.Fatalf("UpdateFromHeaders failed: %v", err)
			}

			allowed, err := tracker.ShouldAllowRequest(ctx)
			if err != nil {
				t.Fatalf("ShouldAllowRequest failed: %v", err)
			}
			if allowed != tt.allowed {
				t.Errorf("ShouldAllowRequest() = %v, want %v", allowed, tt.allowed)
			}
		})
	}
}
