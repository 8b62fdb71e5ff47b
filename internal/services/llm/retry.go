package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/reperio/internal/models"
)

// RetryConfig defines retry behavior for provider rate limit handling
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts
	MaxRetries int

	// InitialBackoff is the initial wait time before the first retry
	InitialBackoff time.Duration

	// MaxBackoff is the maximum wait time between retries
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to backoff on each retry
	BackoffMultiplier float64
}

// Default retry constants for provider rate limiting
const (
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 2 * time.Second
	DefaultMaxBackoff        = 90 * time.Second
	DefaultBackoffMultiplier = 1.5
)

// NewDefaultRetryConfig returns a RetryConfig with sensible defaults for
// handling provider API rate limits
func NewDefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// IsRateLimitError checks if an error is a provider rate limit error.
// Matches 429 status codes and RESOURCE_EXHAUSTED errors.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "quota")
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses the API-suggested retry delay from a provider
// error. Returns 0 if no delay is found in the error message.
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// CalculateBackoff computes the backoff duration for a given attempt.
// If apiDelay > 0 (from ExtractRetryDelay), it is used as the base,
// otherwise InitialBackoff. The result is capped at MaxBackoff.
func (c *RetryConfig) CalculateBackoff(attempt int, apiDelay time.Duration) time.Duration {
	base := c.InitialBackoff
	if apiDelay > 0 {
		// Use API-provided delay plus small buffer
		base = apiDelay + 5*time.Second
	}

	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	backoff := time.Duration(float64(base) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}

	return backoff
}

// Retry runs fn up to attempts times with rate-limit-aware backoff between
// failures. It returns the first successful value, or the last error wrapped
// with models.ErrRetriesExhausted once the budget is spent. The combinator
// is deliberately decoupled from the worker pool: callers decide what a
// failure means for their unit of work.
func Retry[T any](ctx context.Context, config *RetryConfig, attempts int, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(err) {
			backoff = config.CalculateBackoff(attempt, ExtractRetryDelay(err))
		} else {
			backoff = time.Duration(attempt+1) * 2 * time.Second
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %v", models.ErrRetriesExhausted, attempts, lastErr)
}
