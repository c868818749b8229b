package llm

import (
	"context"
	"time"
)

// RetryConfig defines retry behavior for transient embedding provider
// failures.
type RetryConfig struct {
	// MaxAttempts counts the first try plus retries.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// BackoffMultiplier is applied to the backoff on each retry.
	BackoffMultiplier float64
}

const (
	defaultMaxAttempts       = 3
	defaultInitialBackoff    = 1 * time.Second
	defaultBackoffMultiplier = 2.0
)

// NewDefaultRetryConfig returns the retry policy used for embedding calls:
// three attempts with exponential backoff starting at one second.
func NewDefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       defaultMaxAttempts,
		InitialBackoff:    defaultInitialBackoff,
		BackoffMultiplier: defaultBackoffMultiplier,
	}
}

// BackoffFor computes the wait before retry number attempt (0-based).
func (c *RetryConfig) BackoffFor(attempt int) time.Duration {
	backoff := float64(c.InitialBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= c.BackoffMultiplier
	}
	return time.Duration(backoff)
}

// Do runs fn up to MaxAttempts times, sleeping the exponential backoff
// between attempts. The last error is returned when every attempt fails.
func (c *RetryConfig) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < c.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.BackoffFor(attempt - 1)):
			}
		}
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
