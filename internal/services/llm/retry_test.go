package llm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/reperio/internal/models"
)

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 1.5,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetryConfig(), 3, func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
}

func TestRetryRecoversAfterRateLimit(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetryConfig(), 3, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("429 RESOURCE_EXHAUSTED: quota hit")
		}
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetryConfig(), 1, func(ctx context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("permanent failure")
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "permanent failure")
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Retry(ctx, fastRetryConfig(), 5, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, fmt.Errorf("429 try later")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "Nil", err: nil, want: false},
		{name: "429", err: fmt.Errorf("got 429 from server"), want: true},
		{name: "Resource Exhausted", err: fmt.Errorf("RESOURCE_EXHAUSTED"), want: true},
		{name: "Quota", err: fmt.Errorf("quota exceeded"), want: true},
		{name: "Other", err: fmt.Errorf("connection reset"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimitError(tt.err))
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{name: "Please Retry", err: fmt.Errorf("rate limited. Please retry in 7s"), want: 7 * time.Second},
		{name: "Retry Delay Field", err: fmt.Errorf("retryDelay: 2.5s"), want: 2500 * time.Millisecond},
		{name: "No Delay", err: fmt.Errorf("429 too many requests"), want: 0},
		{name: "Nil", err: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractRetryDelay(tt.err))
		})
	}
}

func TestCalculateBackoffCapped(t *testing.T) {
	config := NewDefaultRetryConfig()

	first := config.CalculateBackoff(0, 0)
	assert.Equal(t, config.InitialBackoff, first)

	// Growth is monotone and capped
	prev := time.Duration(0)
	for attempt := 0; attempt < 20; attempt++ {
		backoff := config.CalculateBackoff(attempt, 0)
		assert.GreaterOrEqual(t, backoff, prev)
		assert.LessOrEqual(t, backoff, config.MaxBackoff)
		prev = backoff
	}

	// API-provided delay overrides the initial base
	withAPI := config.CalculateBackoff(0, 10*time.Second)
	assert.Equal(t, 15*time.Second, withAPI)
}
